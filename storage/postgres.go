package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/yowlens/lens/models"
	"github.com/yowlens/lens/ranking"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NormalizeURL rewrites SQLAlchemy-style driver URLs to plain postgres ones.
func NormalizeURL(dbURL string) string {
	if rest, ok := strings.CutPrefix(dbURL, "postgresql+psycopg:"); ok {
		return "postgres:" + rest
	}
	return dbURL
}

func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(NormalizeURL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const productColumns = `
	id,
	name,
	COALESCE(brand, ''),
	COALESCE(price, 0),
	COALESCE(category, ''),
	COALESCE(color, ''),
	COALESCE(image_url, '')`

// neighborSQL builds the retrieval query. Similarities are 1 - cosine
// distance. With a text vector the ordering is an equal blend of both
// similarities, otherwise the HNSW index order on the image vector.
func neighborSQL(withText, withCategory bool) string {
	var b strings.Builder
	b.WriteString("SELECT")
	b.WriteString(productColumns)
	b.WriteString(",\n\t1 - (embedding <=> $1) AS visual_sim")
	next := 2
	textParam := 0
	if withText {
		textParam = next
		next++
		fmt.Fprintf(&b, ",\n\t1 - (embedding <=> $%d) AS text_sim", textParam)
	} else {
		b.WriteString(",\n\t0::float8 AS text_sim")
	}
	b.WriteString("\nFROM products")
	if withCategory {
		fmt.Fprintf(&b, "\nWHERE lower(category) = $%d", next)
		next++
	}
	if withText {
		fmt.Fprintf(&b, "\nORDER BY (0.5 * (1 - (embedding <=> $1)) + 0.5 * (1 - (embedding <=> $%d))) DESC", textParam)
	} else {
		b.WriteString("\nORDER BY embedding <=> $1")
	}
	fmt.Fprintf(&b, "\nLIMIT $%d", next)
	return b.String()
}

// NearestNeighbors returns the closest catalog products to the query vectors.
func (s *PostgresStore) NearestNeighbors(ctx context.Context, q ranking.NeighborQuery) ([]models.Neighbor, error) {
	if len(q.Image) == 0 {
		return nil, fmt.Errorf("image vector is required")
	}

	args := []any{pgvector.NewVector(q.Image)}
	if q.Text != nil {
		args = append(args, pgvector.NewVector(q.Text))
	}
	if q.Category != "" {
		args = append(args, strings.ToLower(q.Category))
	}
	args = append(args, q.Limit)

	rows, err := s.pool.Query(ctx, neighborSQL(q.Text != nil, q.Category != ""), args...)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()

	var results []models.Neighbor
	for rows.Next() {
		var n models.Neighbor
		err := rows.Scan(
			&n.Product.ID,
			&n.Product.Name,
			&n.Product.Brand,
			&n.Product.Price,
			&n.Product.Category,
			&n.Product.Color,
			&n.Product.ImageURL,
			&n.VisualSim,
			&n.TextSim,
		)
		if err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return results, nil
}

// CountByCategory counts products whose lowercased category equals category.
func (s *PostgresStore) CountByCategory(ctx context.Context, category string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE lower(category) = $1`,
		strings.ToLower(category),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category: %w", err)
	}
	return n, nil
}

// CategoryCounts returns the number of products per lowercased category.
// Products without a category are counted under "unknown".
func (s *PostgresStore) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lower(COALESCE(NULLIF(category, ''), 'unknown')) AS c, count(*)
		FROM products
		GROUP BY c`)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}
