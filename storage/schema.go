package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/yowlens/lens/models"
)

// DefaultDimension matches the ViT-B-32 embedding size.
const DefaultDimension = 512

const defaultBatchSize = 500

func schemaStatements(dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	brand      TEXT,
	price      DOUBLE PRECISION,
	category   TEXT,
	color      TEXT,
	image_url  TEXT,
	embedding  vector(%d) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, dim),
		`CREATE INDEX IF NOT EXISTS products_embedding_hnsw ON products USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS products_category_lower ON products (lower(category))`,
	}
}

// Migrate creates the catalog schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		dim = DefaultDimension
	}
	for _, stmt := range schemaStatements(dim) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const upsertSQL = `
INSERT INTO products (id, name, brand, price, category, color, image_url, embedding, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, now())
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	brand = EXCLUDED.brand,
	price = EXCLUDED.price,
	category = EXCLUDED.category,
	color = EXCLUDED.color,
	image_url = EXCLUDED.image_url,
	embedding = EXCLUDED.embedding,
	updated_at = now()`

// UpsertProducts writes products in batches and returns how many were
// written. Products without an embedding are rejected.
func (s *PostgresStore) UpsertProducts(ctx context.Context, products []models.CatalogProduct, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	written := 0
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))

		batch := &pgx.Batch{}
		for _, p := range products[start:end] {
			if p.ID == "" || len(p.Embedding) == 0 {
				return written, fmt.Errorf("product %q: id and embedding are required", p.ID)
			}
			batch.Queue(upsertSQL, p.ID, p.Name, p.Brand, p.Price, p.Category, p.Color, p.ImageURL, pgvector.NewVector(p.Embedding))
		}

		br := s.pool.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return written, fmt.Errorf("upsert product %q: %w", products[i].ID, err)
			}
		}
		if err := br.Close(); err != nil {
			return written, fmt.Errorf("close batch: %w", err)
		}
		written += end - start
	}
	return written, nil
}

// DecodeProducts reads JSON-lines product rows. Blank lines are skipped.
func DecodeProducts(r io.Reader) ([]models.CatalogProduct, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var products []models.CatalogProduct
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var p models.CatalogProduct
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	return products, nil
}
