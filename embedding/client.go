// Package embedding talks to the image/text embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrDimension is returned when the service answers with a vector of the
// wrong size for the catalog index.
var ErrDimension = errors.New("unexpected embedding dimension")

// Config holds embedding client configuration.
type Config struct {
	BaseURL     string
	Model       string
	Dimension   int
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
	JPEGQuality int
}

// Client encodes crops and text queries through the embedding service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dimension  int
	quality    int
	limiter    *rate.Limiter
}

// NewClient creates a new embedding client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "ViT-B-32"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 512
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 90
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		quality:    cfg.JPEGQuality,
		limiter:    limiter,
	}, nil
}

type imageRequest struct {
	Image string `json:"image"`
	Model string `json:"model,omitempty"`
}

type textRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EncodeImage embeds an image, sent as a base64 JPEG.
func (c *Client) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return c.post(ctx, "/embed/image", imageRequest{
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Model: c.model,
	})
}

// EncodeText embeds a text query.
func (c *Client) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return c.post(ctx, "/embed/text", textRequest{Text: text, Model: c.model})
}

// Model returns the model being used.
func (c *Client) Model() string {
	return c.model
}

// Dimension returns the expected embedding dimension.
func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out embedResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(raw, &out) == nil && out.Error != "" {
			return nil, fmt.Errorf("embedding service %s: status %d: %s", path, resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("embedding service %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Embedding) != c.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(out.Embedding), c.dimension)
	}
	return out.Embedding, nil
}
