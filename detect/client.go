package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"

	"github.com/yowlens/lens/models"
)

// Prompt is sent with every photo. It pins the output to the attribute
// schema the ranker understands.
const Prompt = `Analyze this outfit image. For each fashion item, extract detailed attributes.

Return a JSON array ONLY. Each element:
{
  "label": "detailed description",
  "box_2d": [ymin, xmin, ymax, xmax],
  "category": "top|bottom|dress|jacket|coat|shoes|bag|accessory|sunglasses",
  "subcategory": "specific type",
  "color": "precise color; name both if unsure, e.g. olive green or khaki",
  "material": "specific material, e.g. cotton jersey, wool knit, oxford cloth",
  "pattern": "solid|horizontal_stripes|vertical_stripes|plaid|floral|woven|quilted|...",
  "sleeve_length": "sleeveless|short_sleeve|three_quarter|long_sleeve",
  "length": "cropped|regular|midi|maxi|mini",
  "fit": "oversized|relaxed|regular|slim|fitted",
  "distinctive_features": ["list", "of", "details"],
  "texture": "texture description, distinct from material",
  "style_keywords": ["searchable", "terms"]
}

Navy is not black. Olive is not brown. Cream is not pure white.
Horizontal stripes run across (breton, rugby); vertical stripes run up and down (pinstripe).`

// Config holds detector client configuration.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	Padding    float64
}

// Client calls the attribute extraction service and crops its detections.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	padding    float64
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a detector client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("detector base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Padding <= 0 {
		cfg.Padding = DefaultPadding
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), max(1, cfg.Burst))
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		padding:    cfg.Padding,
		limiter:    limiter,
		logger:     logger.With().Str("component", "detector").Logger(),
	}, nil
}

type analyzeRequest struct {
	Image       string  `json:"image"`
	MimeType    string  `json:"mime_type"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

type analyzeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Analyze sends img to the model and parses the garments it reports.
func (c *Client) Analyze(ctx context.Context, img image.Image) ([]models.GarmentAttributes, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	body, err := json.Marshal(analyzeRequest{
		Image:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/jpeg",
		Model:       c.model,
		Prompt:      Prompt,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
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

	var out analyzeResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(raw, &out) == nil && out.Error != "" {
			return nil, fmt.Errorf("detector: status %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("detector: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items, err := ParseItems(out.Text)
	if err != nil {
		// An unreadable answer is treated as an empty detection.
		c.logger.Warn().Err(err).Msg("could not parse detector answer")
		return []models.GarmentAttributes{}, nil
	}
	if len(items) == 0 {
		c.logger.Debug().Msg("detector found no garments")
	}
	return items, nil
}

// Crop cuts the detected garments out of img with the configured padding.
func (c *Client) Crop(img image.Image, items []models.GarmentAttributes) []models.Crop {
	return CropItems(img, items, c.padding)
}

// DecodeImage reads a JPEG, PNG or WebP photo and normalizes it for detection.
func DecodeImage(r io.Reader, maxDim int) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Preprocess(img, maxDim), nil
}
