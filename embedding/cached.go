package embedding

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/yowlens/lens/cache"
)

// Encoder is the embedding surface the cache wraps.
type Encoder interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder memoizes text embeddings. Text queries repeat heavily
// across garments of the same kind; image crops never do, so images always
// go to the service.
type CachedEmbedder struct {
	next   Encoder
	cache  cache.Client
	model  string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedEmbedder wraps next with a text-embedding cache.
func NewCachedEmbedder(next Encoder, c cache.Client, model string, ttl time.Duration, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		cache:  c,
		model:  model,
		ttl:    ttl,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

// EncodeImage passes through to the wrapped encoder.
func (e *CachedEmbedder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	return e.next.EncodeImage(ctx, img)
}

// EncodeText returns the cached embedding for text, computing and storing it
// on a miss. Cache failures degrade to a direct call.
func (e *CachedEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	key := textKey(e.model, text)

	data, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		vec, derr := decodeVector(data)
		if derr == nil {
			e.logger.Debug().Str("key", key).Msg("cache hit")
			return vec, nil
		}
		e.logger.Warn().Err(derr).Str("key", key).Msg("discarding corrupt cache entry")
	case !errors.Is(err, cache.ErrCacheMiss):
		e.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
	}

	vec, err := e.next.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, key, encodeVector(vec), e.ttl); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return vec, nil
}

func textKey(model, text string) string {
	h := sha1.Sum([]byte(text + "|" + model))
	return cache.Key("emb", "text", hex.EncodeToString(h[:]))
}

// encodeVector writes a little-endian length prefix followed by the values.
func encodeVector(v []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+4*len(v)))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(v)))
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("cache entry too short: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data[:4])
	if need := 4 + 4*int(n); len(data) != need {
		return nil, fmt.Errorf("cache entry has %d bytes, want %d", len(data), need)
	}
	vec := make([]float32, n)
	if err := binary.Read(bytes.NewReader(data[4:]), binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return vec, nil
}
