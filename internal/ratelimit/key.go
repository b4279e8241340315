package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests without a usable address.
const UnknownClient = "unknown"

// ClientKey identifies the caller: the first X-Forwarded-For entry when
// trusted and present, else the connection's host, else UnknownClient.
func ClientKey(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return UnknownClient
}
