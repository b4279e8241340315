package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification 封装告警上下文。
type Notification struct {
	Provider            string
	ConsecutiveFailures int
	LastError           string
	LastISBN            string
	LastSourceURL       string
	Since               time.Time
	At                  time.Time
	AdditionalMsg       string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("provider", note.Provider).
		Int("consecutive_failures", note.ConsecutiveFailures).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Buyback Provider Alert]\n")
	builder.WriteString(fmt.Sprintf("Provider: %s\n", note.Provider))
	builder.WriteString(fmt.Sprintf("Consecutive failures: %d\n", note.ConsecutiveFailures))
	if !note.Since.IsZero() {
		builder.WriteString(fmt.Sprintf("Failing since: %s UTC\n", note.Since.UTC().Format(time.RFC3339)))
	}
	if note.LastError != "" {
		builder.WriteString(fmt.Sprintf("Last error: %s\n", note.LastError))
	}
	if note.LastISBN != "" {
		builder.WriteString(fmt.Sprintf("Last ISBN: %s\n", note.LastISBN))
	}
	if note.LastSourceURL != "" {
		builder.WriteString(fmt.Sprintf("Source: %s\n", note.LastSourceURL))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

// LogNotifier writes notifications to the log; used when Telegram is not configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn().Str("provider", note.Provider).
		Int("consecutive_failures", note.ConsecutiveFailures).
		Str("last_error", note.LastError).
		Str("isbn", note.LastISBN).
		Msg("provider degraded")
	return nil
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
