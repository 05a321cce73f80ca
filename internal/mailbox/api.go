package mailbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps how much of a single API response is read.
const maxBodyBytes = 4 << 20

type messageSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Time    int64  `json:"time"`
}

type inboxResponse struct {
	Msgs     []messageSummary `json:"msgs"`
	Messages []messageSummary `json:"messages"`
}

func (r inboxResponse) all() []messageSummary {
	return append(append([]messageSummary(nil), r.Messages...), r.Msgs...)
}

type messagePart struct {
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

type messageResponse struct {
	ID      string        `json:"id"`
	Subject string        `json:"subject"`
	Text    string        `json:"text"`
	Parts   []messagePart `json:"parts"`
}

// APIClient polls the mail provider's HTTP API for a verification code.
type APIClient struct {
	cfg     config.MailAPIConfig
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *zap.Logger
}

func NewAPIClient(cfg config.MailAPIConfig, policy retry.Policy, logger *zap.Logger) (*APIClient, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid mail API base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}

	logger = logger.Named("otp_api")
	policy.Logger = logger
	return &APIClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout, Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		policy:  policy,
		logger:  logger,
	}, nil
}

func (c *APIClient) RetrieveCode(ctx context.Context, mb schemas.Mailbox) (schemas.VerificationCode, error) {
	code, err := retry.Poll(ctx, c.policy, awaiting(mb), func(ctx context.Context, _ int) (schemas.VerificationCode, bool, error) {
		msgs, err := c.inbox(ctx, mb.LocalPart)
		if err != nil {
			return "", false, err
		}
		for _, m := range msgs {
			text, err := c.messageText(ctx, m.ID)
			if err != nil {
				c.logger.Debug("Could not read message.", zap.String("id", m.ID), zap.Error(err))
				continue
			}
			if code, ok := ExtractCode(text); ok {
				return code, true, nil
			}
		}
		return "", false, nil
	})
	if err != nil {
		return "", notReceived(mb, err)
	}
	c.logger.Info("Verification code received.", zap.String("mailbox", mb.Address))
	return code, nil
}

func (c *APIClient) inbox(ctx context.Context, local string) ([]messageSummary, error) {
	var resp inboxResponse
	if err := c.getJSON(ctx, c.endpoint("inboxes", local), &resp); err != nil {
		return nil, err
	}
	msgs := resp.all()
	c.logger.Debug("Inbox listed.", zap.String("inbox", local), zap.Int("messages", len(msgs)))
	return msgs, nil
}

func (c *APIClient) messageText(ctx context.Context, id string) (string, error) {
	var msg messageResponse
	if err := c.getJSON(ctx, c.endpoint("messages", id), &msg); err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.Text) != "" {
		return msg.Text, nil
	}

	var texts []string
	for _, p := range msg.Parts {
		ct := strings.ToLower(headerValue(p.Headers, "content-type"))
		if strings.Contains(ct, "html") {
			t, err := HTMLToText(p.Body)
			if err != nil {
				return "", err
			}
			texts = append(texts, t)
			continue
		}
		texts = append(texts, p.Body)
	}
	if joined := strings.TrimSpace(strings.Join(texts, "\n")); joined != "" {
		return joined, nil
	}

	body, err := c.get(ctx, c.endpoint("messages", id, "raw"))
	if err != nil {
		return "", err
	}
	defer body.Close()
	return MessageText(io.LimitReader(body, maxBodyBytes))
}

func headerValue(h map[string]string, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (c *APIClient) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "domains", c.cfg.Domain)
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (c *APIClient) getJSON(ctx context.Context, u string, out interface{}) error {
	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, u string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Stop(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	err = fmt.Errorf("GET %s: status %d: %s", u, resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, retry.Stop(err)
	}
	return nil, err
}
