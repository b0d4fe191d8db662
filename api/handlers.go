package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/yowlens/lens/detect"
	"github.com/yowlens/lens/models"
	"github.com/yowlens/lens/ranking"
)

// ImageSearcher runs shop-the-look searches over whole photos.
type ImageSearcher interface {
	SearchImage(ctx context.Context, img image.Image, opts ranking.LensOptions) ([]models.ResultGroup, error)
}

// CatalogStats reports catalog contents for health checks.
type CatalogStats interface {
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

// Config tunes request handling.
type Config struct {
	Search         ranking.LensOptions
	MaxUploadBytes int64
	MaxDimension   int
}

type Handler struct {
	images   ImageSearcher
	garments ranking.GarmentSearcher
	stats    CatalogStats
	cfg      Config
}

func NewHandler(images ImageSearcher, garments ranking.GarmentSearcher, stats CatalogStats, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = detect.DefaultMaxDimension
	}
	return &Handler{
		images:   images,
		garments: garments,
		stats:    stats,
		cfg:      cfg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ShopTheLook detects every garment in an uploaded photo and returns ranked
// catalog matches per garment.
func (h *Handler) ShopTheLook(w http.ResponseWriter, r *http.Request) {
	opts := h.cfg.Search
	if v := r.URL.Query().Get("limit_per_item"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > opts.Ranking.PoolSize {
			writeError(w, http.StatusBadRequest, "limit_per_item must be between 1 and "+strconv.Itoa(opts.Ranking.PoolSize))
			return
		}
		opts.Ranking.FinalLimit = n
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	img, err := detect.DecodeImage(file, h.cfg.MaxDimension)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image")
		return
	}

	groups, err := h.images.SearchImage(r.Context(), img, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ShopTheLookResponse{
		Success:       true,
		ItemsDetected: len(groups),
		Results:       groups,
	})
}

// Search ranks catalog products for one already-cropped garment.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	raw, err := decodeBase64Image(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image must be base64 encoded")
		return
	}
	img, err := detect.DecodeImage(bytes.NewReader(raw), h.cfg.MaxDimension)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image")
		return
	}
	opts, err := h.requestOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.garments.Search(r.Context(), img, req.Attributes, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SearchResponse{Result: ranking.NewResultGroup(res)})
}

// Health reports catalog size per category.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.CategoryCounts(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Categories: map[string]int{}})
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", TotalProducts: total, Categories: counts})
}

func (h *Handler) requestOptions(req models.SearchRequest) (ranking.Options, error) {
	opts := h.cfg.Search.Ranking
	for _, w := range []*float64{req.VisualWeight, req.TextWeight, req.ColorWeight} {
		if w != nil && *w < 0 {
			return opts, errors.New("weights must be non-negative")
		}
	}
	if req.VisualWeight != nil {
		opts.VisualWeight = *req.VisualWeight
	}
	if req.TextWeight != nil {
		opts.TextWeight = *req.TextWeight
	}
	if req.ColorWeight != nil {
		opts.ColorWeight = *req.ColorWeight
	}
	if req.PoolSize < 0 || req.Limit < 0 {
		return opts, errors.New("pool_size and limit must be non-negative")
	}
	if req.PoolSize > opts.PoolSize {
		return opts, fmt.Errorf("pool_size must not exceed %d", opts.PoolSize)
	}
	if req.PoolSize > 0 {
		opts.PoolSize = req.PoolSize
	}
	if req.Limit > 0 {
		opts.FinalLimit = req.Limit
	}
	if req.FilterPattern != nil {
		opts.FilterPattern = *req.FilterPattern
	}
	if req.MinResults != nil {
		if *req.MinResults < 0 {
			return opts, errors.New("min_results must be non-negative")
		}
		opts.MinResults = *req.MinResults
	}
	return opts, nil
}

// fail maps a search error onto a response status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	event := hlog.FromRequest(r).Error()
	if status < http.StatusInternalServerError {
		event = hlog.FromRequest(r).Warn()
	}
	event.Err(err).Int("status", status).Msg("search failed")

	msg := http.StatusText(status)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	writeError(w, status, msg)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ranking.ErrMissingBoundingBox):
		return http.StatusBadRequest
	case errors.Is(err, ranking.ErrEmbeddingService),
		errors.Is(err, ranking.ErrStoreQuery),
		errors.Is(err, ranking.ErrDetection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBase64Image(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
