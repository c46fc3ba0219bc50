// Package memory implements the persistent stores behind evidence gathering:
// a pgvector-backed document store for embedded news and a timeseries store
// for OHLCV bars.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/quantforge/internal/evidence"
)

// Querier is the pgx surface the stores depend on, satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoredDocument is one news article with its embedding, ready for insert
type StoredDocument struct {
	ID          uuid.UUID
	Title       string
	Content     string
	Source      string
	Ticker      string
	Category    string
	PublishedAt time.Time
	Embedding   []float32
}

// DocumentStore persists embedded news documents and serves nearest-neighbor
// queries over them.
type DocumentStore struct {
	pool       Querier
	dimensions int
}

// NewDocumentStore creates a document store. dimensions must match the
// vector column width in the news_documents table.
func NewDocumentStore(pool Querier, dimensions int) *DocumentStore {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &DocumentStore{pool: pool, dimensions: dimensions}
}

// Store inserts a document, assigning an ID when absent. Duplicate IDs
// update the content and embedding in place.
func (s *DocumentStore) Store(ctx context.Context, doc *StoredDocument) error {
	if len(doc.Embedding) != s.dimensions {
		return fmt.Errorf("embedding must be %d dimensions, got %d", s.dimensions, len(doc.Embedding))
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Category == "" {
		doc.Category = "general"
	}

	query := `
		INSERT INTO news_documents (
			id, title, content, source, ticker, category, published_at, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			embedding = EXCLUDED.embedding
	`

	_, err := s.pool.Exec(
		ctx,
		query,
		doc.ID,
		doc.Title,
		doc.Content,
		doc.Source,
		doc.Ticker,
		doc.Category,
		doc.PublishedAt,
		pgvector.NewVector(doc.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	log.Debug().
		Str("id", doc.ID.String()).
		Str("ticker", doc.Ticker).
		Str("source", doc.Source).
		Msg("Stored news document")

	return nil
}

// Search returns the documents nearest to the query vector by cosine
// distance, restricted to the given ticker, nearest first. Implements
// evidence.DocumentSearcher.
func (s *DocumentStore) Search(ctx context.Context, queryVector []float32, limit int, ticker string) ([]evidence.Document, error) {
	if len(queryVector) != s.dimensions {
		return nil, fmt.Errorf("query vector must be %d dimensions, got %d", s.dimensions, len(queryVector))
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			title, content, source, ticker, category, published_at,
			embedding <=> $1 AS distance
		FROM news_documents
		WHERE ticker = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(queryVector), ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar documents: %w", err)
	}
	defer rows.Close()

	var docs []evidence.Document
	for rows.Next() {
		var doc evidence.Document
		err := rows.Scan(
			&doc.Title,
			&doc.Content,
			&doc.Source,
			&doc.Ticker,
			&doc.Category,
			&doc.Timestamp,
			&doc.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	log.Debug().
		Str("ticker", ticker).
		Int("count", len(docs)).
		Int("limit", limit).
		Msg("Vector search complete")

	return docs, rows.Err()
}

// CountByTicker returns how many documents are stored for a ticker
func (s *DocumentStore) CountByTicker(ctx context.Context, ticker string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM news_documents WHERE ticker = $1", ticker,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// PruneOlderThan removes documents published before the cutoff
func (s *DocumentStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM news_documents WHERE published_at < $1", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune documents: %w", err)
	}

	count := tag.RowsAffected()
	if count > 0 {
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msg("Pruned old news documents")
	}

	return int(count), nil
}
