package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer 配置了 API key 时使用 SendGrid，否则只写日志
func NewMailer(cfg config.MailConfig) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("Mail API key not configured, notifications will only be logged")
		return LogMailer{}
	}
	return NewSendGridMailer(cfg)
}

// LogMailer 只记录日志
type LogMailer struct{}

// Send 实现 Mailer
func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Info("Mail to %s: %s", msg.To, msg.Subject)
	return nil
}

// SendGridMailer 通过 SendGrid v3 API 发送邮件
type SendGridMailer struct {
	cfg        config.MailConfig
	httpClient *http.Client
	retryWait  time.Duration
}

// NewSendGridMailer 创建 SendGrid 发送器
func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &SendGridMailer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryWait:  time.Second,
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

// HTTPError SendGrid 返回的非 2xx 响应
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

// retryable 429 和 5xx 可以重试
func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Send 发送邮件，429 和 5xx 按指数退避重试
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("sendgrid: recipient required")
	}
	if strings.TrimSpace(m.cfg.FromEmail) == "" {
		return fmt.Errorf("sendgrid: from email required")
	}

	wire := mailSendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             emailAddress{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
		Subject:          msg.Subject,
		Content:          []mailContent{{Type: "text/plain", Value: msg.Text}},
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		err := m.doOnce(ctx, body)
		if err == nil {
			return nil
		}

		var he *HTTPError
		if errors.As(err, &he) && !he.retryable() {
			return backoff.Permanent(err)
		}
		logger.Warn("Sendgrid request failed (attempt %d/%d): %v", attempt, m.cfg.MaxRetries+1, err)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryWait
	policy.MaxInterval = 10 * m.retryWait

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(m.cfg.MaxRetries)), ctx))
}

func (m *SendGridMailer) doOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
