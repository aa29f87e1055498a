package glmocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"hanziblur/internal/logging"
	"hanziblur/internal/ocr"
)

const (
	DefaultBaseURL          = "https://open.bigmodel.cn/api/paas/v4/layout_parsing"
	DefaultModel            = "glm-ocr"
	DefaultFailureThreshold = 3

	// MaxImageWidth bounds the width of uploaded images.
	MaxImageWidth = 1280

	// DetectionConfidence is attached to every returned detection.
	DetectionConfidence = 0.9

	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 8 * time.Second
)

var acceptedLabels = map[string]struct{}{
	"text":            {},
	"paragraph":       {},
	"title":           {},
	"paragraph_title": {},
	"table":           {},
}

// Config captures the runtime settings required to talk to GLM-OCR.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	TimeoutSeconds   int
	FailureThreshold int
}

// Client wraps the layout_parsing endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)

	mu       sync.Mutex
	failures int
	offline  bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the per-call attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a GLM-OCR client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:           strings.TrimSpace(cfg.APIKey),
			BaseURL:          strings.TrimSpace(cfg.BaseURL),
			Model:            strings.TrimSpace(cfg.Model),
			TimeoutSeconds:   cfg.TimeoutSeconds,
			FailureThreshold: cfg.FailureThreshold,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = DefaultModel
	}
	if client.cfg.FailureThreshold <= 0 {
		client.cfg.FailureThreshold = DefaultFailureThreshold
	}
	client.logger = logging.NewComponentLogger(client.logger, "ocr.glm")
	return client
}

type layoutRequest struct {
	Model string `json:"model"`
	File  string `json:"file"`
}

type layoutItem struct {
	Label   string    `json:"label"`
	Content string    `json:"content"`
	BBox2D  []float64 `json:"bbox_2d"`
}

type layoutResponse struct {
	LayoutDetails json.RawMessage `json:"layout_details"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("glm-ocr request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ErrOffline is returned while the client is in offline mode.
var ErrOffline = errors.New("glm-ocr offline")

func (c *Client) Name() string { return ocr.BackendGLM }

// Available reports whether an API key is configured and the client has
// not gone offline.
func (c *Client) Available() bool {
	if c.cfg.APIKey == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.offline
}

// Capabilities marks the client as batch capable with tagged results.
func (c *Client) Capabilities() ocr.Capabilities {
	return ocr.Capabilities{SupportsBatch: true, TaggedBatch: true, Concurrent: true}
}

// ResetOffline clears the failure counter and leaves offline mode.
func (c *Client) ResetOffline() {
	c.mu.Lock()
	c.failures = 0
	c.offline = false
	c.mu.Unlock()
	c.logger.Info("glm-ocr offline mode reset")
}

// HealthCheck sends a blank probe image and reports whether the endpoint
// accepts the credentials. It does not touch the offline counter.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("glm-ocr: api key required")
	}
	probe := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range probe.Pix {
		probe.Pix[i] = 0xff
	}
	file, _, err := encodeImage(probe)
	if err != nil {
		return err
	}
	_, err = c.layoutWithRetry(ctx, layoutRequest{Model: c.cfg.Model, File: file})
	return err
}

// ReadText recognizes one image.
func (c *Client) ReadText(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("glm-ocr: api key required")
	}
	if !c.Available() {
		return nil, ErrOffline
	}
	file, scale, err := encodeImage(img)
	if err != nil {
		return nil, err
	}
	items, err := c.layoutWithRetry(ctx, layoutRequest{Model: c.cfg.Model, File: file})
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}
	c.recordSuccess()
	return toDetections(items, scale), nil
}

// ReadTextBatch recognizes images one request at a time and returns one
// result list per input. A failed image yields an empty list; the error
// reports the first failure.
func (c *Client) ReadTextBatch(ctx context.Context, imgs []image.Image) ([][]ocr.Detection, error) {
	out := make([][]ocr.Detection, len(imgs))
	var firstErr error
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		dets, err := c.ReadText(ctx, img)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("batch item %d: %w", i, err)
			}
			if errors.Is(err, ErrOffline) {
				break
			}
			continue
		}
		out[i] = dets
	}
	return out, firstErr
}

func (c *Client) recordFailure(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.mu.Lock()
	c.failures++
	wentOffline := !c.offline && c.failures >= c.cfg.FailureThreshold
	if wentOffline {
		c.offline = true
	}
	failures := c.failures
	c.mu.Unlock()

	if wentOffline {
		logging.ErrorWithContext(c.logger, "glm-ocr switched to offline mode", "glm_offline",
			logging.Int("consecutive_failures", failures),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the API key, quota and network; local OCR takes over"),
		)
	}
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

func (c *Client) layoutWithRetry(ctx context.Context, payload layoutRequest) ([]layoutItem, error) {
	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err := c.sendOnce(ctx, payload)
		if err == nil {
			return items, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("glm-ocr: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload layoutRequest) ([]layoutItem, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "")
	if err != nil {
		return nil, fmt.Errorf("glm-ocr request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("glm-ocr request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("glm-ocr request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("glm-ocr request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("glm-ocr request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return parseLayout(body)
}

// parseLayout decodes a layout_parsing response body. layout_details may be
// a flat list or a list of per-page lists.
func parseLayout(body []byte) ([]layoutItem, error) {
	var resp layoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("glm-ocr request: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("glm-ocr request: api error %s: %s", resp.Error.Code, strings.TrimSpace(resp.Error.Message))
	}
	raw := bytes.TrimSpace(resp.LayoutDetails)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var flat []layoutItem
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var pages [][]layoutItem
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("glm-ocr request: decode layout_details: %w", err)
	}
	var items []layoutItem
	for _, page := range pages {
		items = append(items, page...)
	}
	return items, nil
}

func toDetections(items []layoutItem, scale float64) []ocr.Detection {
	out := make([]ocr.Detection, 0, len(items))
	for _, item := range items {
		if _, ok := acceptedLabels[item.Label]; !ok {
			continue
		}
		text := strings.TrimSpace(strings.NewReplacer("## ", "", "# ", "").Replace(item.Content))
		if text == "" || len(item.BBox2D) < 4 {
			continue
		}
		inv := 1.0
		if scale > 0 {
			inv = 1 / scale
		}
		x1, y1 := item.BBox2D[0]*inv, item.BBox2D[1]*inv
		x2, y2 := item.BBox2D[2]*inv, item.BBox2D[3]*inv
		out = append(out, ocr.Detection{
			Quad:       [4]ocr.Point{{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2}},
			Text:       text,
			Confidence: DetectionConfidence,
		})
	}
	return out
}

// encodeImage returns a PNG data URL and the scale applied (sent / original).
func encodeImage(img image.Image) (string, float64, error) {
	b := img.Bounds()
	if b.Empty() {
		return "", 0, errors.New("glm-ocr: empty image")
	}
	scale := 1.0
	src := img
	if b.Dx() > MaxImageWidth {
		scale = float64(MaxImageWidth) / float64(b.Dx())
		dst := image.NewRGBA(image.Rect(0, 0, MaxImageWidth, max(1, int(float64(b.Dy())*scale))))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return "", 0, fmt.Errorf("glm-ocr: encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), scale, nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 -> base, 2 -> 2x, ...
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < max(1, attempt); i++ {
		delay *= 2
		if delay >= c.retryMaxDelay && c.retryMaxDelay > 0 {
			break
		}
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
