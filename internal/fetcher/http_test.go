package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

var longBody = "<html><body>" + strings.Repeat("중고 매입 ", 40) + "</body></html>"

func TestFetchFirstAvailableFallsBackInOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/short":
			_, _ = w.Write([]byte("tiny"))
		default:
			if r.Header.Get("User-Agent") == "" || r.Header.Get("Accept-Language") == "" {
				t.Errorf("browser-like headers missing: %v", r.Header)
			}
			_, _ = w.Write([]byte(longBody))
		}
	}))
	defer srv.Close()

	f := NewHTTP(Options{Timeout: time.Second}, noopLogger())
	doc, err := f.FetchFirstAvailable(context.Background(), []string{
		srv.URL + "/broken",
		srv.URL + "/short",
		srv.URL + "/good",
		srv.URL + "/never",
	})
	if err != nil {
		t.Fatalf("expected document, got error %v", err)
	}
	if doc.URL != srv.URL+"/good" {
		t.Fatalf("expected /good to serve the document, got %s", doc.URL)
	}
	if doc.Body != longBody {
		t.Fatalf("unexpected body")
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(hits, ",") != "/broken,/short,/good" {
		t.Fatalf("candidates must be tried strictly in order, got %v", hits)
	}
}

func TestFetchFirstAvailableAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(longBody))
	}))
	defer srv.Close()

	f := NewHTTP(Options{Timeout: time.Second}, noopLogger())
	_, err := f.FetchFirstAvailable(context.Background(), []string{srv.URL + "/a", "http://127.0.0.1:0/unreachable"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchFirstAvailableTimeoutMovesOn(t *testing.T) {
	var slowCalls atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slowCalls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longBody))
	}))
	defer fast.Close()

	f := NewHTTP(Options{Timeout: 50 * time.Millisecond}, noopLogger())
	doc, err := f.FetchFirstAvailable(context.Background(), []string{slow.URL, fast.URL})
	if err != nil {
		t.Fatalf("timeout on first candidate should fall through, got %v", err)
	}
	if doc.URL != fast.URL {
		t.Fatalf("expected fast candidate, got %s", doc.URL)
	}
	if slowCalls.Load() != 1 {
		t.Fatalf("slow candidate should be attempted once, got %d", slowCalls.Load())
	}
}

func TestFetchFirstAvailableFollowsRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(longBody))
	}))
	defer srv.Close()

	f := NewHTTP(Options{}, noopLogger())
	doc, err := f.FetchFirstAvailable(context.Background(), []string{srv.URL + "/old"})
	if err != nil {
		t.Fatalf("redirect should be followed: %v", err)
	}
	if doc.URL != srv.URL+"/old" {
		t.Fatalf("document URL should be the candidate, got %s", doc.URL)
	}
}

func TestFetchFirstAvailableNoCandidates(t *testing.T) {
	f := NewHTTP(Options{}, noopLogger())
	if _, err := f.FetchFirstAvailable(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty candidates, got %v", err)
	}
}
