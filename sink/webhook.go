package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/horosafe"
)

// Webhook uploads artifacts to a document server: the container as a
// multipart document, then the page URL and title as attributes.
//
//	POST {base}/api/v1/documents/{space}/add?path=<path>.inkclip         -> 201
//	POST {base}/api/v1/documents/{space}/attributes?path=<path>.inkclip  -> 200
//
// Failed requests are retried with exponential backoff; 4xx answers other
// than 429 are final.
type Webhook struct {
	base       string
	space      string
	token      string
	secret     []byte
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	policy     *bluemonday.Policy
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay, doubled on each retry. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// WithWebhookToken sends "Authorization: Bearer <token>".
func WithWebhookToken(token string) WebhookOption {
	return func(w *Webhook) { w.token = token }
}

// WithWebhookSecret signs every request body with HMAC-SHA256 in the
// X-Signature-256 header.
func WithWebhookSecret(secret []byte) WebhookOption {
	return func(w *Webhook) { w.secret = secret }
}

// WithWebhookClient replaces the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a Webhook sink for one space of the document server
// at baseURL.
func NewWebhook(baseURL, space string, opts ...WebhookOption) (*Webhook, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("webhook: base url: %w", err)
	}
	if err := horosafe.ValidateIdentifier(space); err != nil {
		return nil, fmt.Errorf("webhook: space key: %w", err)
	}
	w := &Webhook{
		base:       strings.TrimRight(baseURL, "/"),
		space:      space,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		logger:     slog.Default(),
		policy:     bluemonday.StrictPolicy(),
	}
	for _, o := range opts {
		o(w)
	}
	if len(w.secret) > 0 {
		if err := horosafe.ValidateSecret(w.secret); err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
	}
	return w, nil
}

func (w *Webhook) Send(ctx context.Context, a Artifact) error {
	path := a.FileName()
	if strings.Contains(path, "..") {
		return fmt.Errorf("webhook: %q: %w", a.DocumentPath, horosafe.ErrPathTraversal)
	}

	body, contentType, err := documentBody(a.Container)
	if err != nil {
		return fmt.Errorf("webhook: build upload: %w", err)
	}
	if err := w.post(ctx, w.endpoint("add", path), contentType, body, http.StatusCreated); err != nil {
		return fmt.Errorf("webhook: upload %s: %w", path, err)
	}

	attrs, err := json.Marshal(map[string]any{
		"attributes": map[string]string{
			"url":   a.URL,
			"title": w.policy.Sanitize(a.Title),
		},
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal attributes: %w", err)
	}
	if err := w.post(ctx, w.endpoint("attributes", path), "application/json", attrs, http.StatusOK); err != nil {
		return fmt.Errorf("webhook: attributes %s: %w", path, err)
	}

	w.logger.Info("webhook: artifact stored", "id", a.ID, "space", w.space, "path", path, "bytes", a.Size())
	return nil
}

func (w *Webhook) Close() error { return nil }

func (w *Webhook) endpoint(action, path string) string {
	return fmt.Sprintf("%s/api/v1/documents/%s/%s?path=%s",
		w.base, url.PathEscape(w.space), action, url.QueryEscape(path))
}

func (w *Webhook) Name() string { return "webhook" }

func documentBody(data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="webclip`+container.Ext+`"`)
	h.Set("Content-Type", container.MIMEType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

var errPermanent = errors.New("permanent failure")

func (w *Webhook) post(ctx context.Context, endpoint, contentType string, body []byte, want int) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.backoff << uint(attempt-1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := w.do(ctx, endpoint, contentType, body, want)
		if err == nil {
			return nil
		}
		if errors.Is(err, errPermanent) {
			return err
		}
		lastErr = err
		w.logger.Warn("webhook: request failed", "attempt", attempt+1, "url", endpoint, "error", err)
	}
	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

func (w *Webhook) do(ctx context.Context, endpoint, contentType string, body []byte, want int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w: %w", errPermanent, err)
	}
	req.Header.Set("Content-Type", contentType)
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	if len(w.secret) > 0 {
		mac := hmac.New(sha256.New, w.secret)
		mac.Write(body)
		req.Header.Set("X-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode == want {
		return nil
	}
	err = fmt.Errorf("status %d, want %d: %s", resp.StatusCode, want, strings.TrimSpace(string(msg)))
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	return err
}
