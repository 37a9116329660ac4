package vectorstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"rag-assistant/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the scripts.
const MigrationsDir = "migrations"

// MarkerFile records in the index directory that vectors live in Postgres.
const MarkerFile = "postgres.marker"

const chunksTable = "kb_chunks"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Postgres keeps vectors in a REAL[] column and ranks them in process.
type Postgres struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(db *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) Reset(ctx context.Context) error {
	query, args, err := psql.Delete(chunksTable).ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	// Postgres caps a statement at 65535 bind parameters.
	const rowsPerStatement = 1000
	for start := 0; start < len(chunks); start += rowsPerStatement {
		end := min(start+rowsPerStatement, len(chunks))
		query, args, err := insertQuery(chunks[start:end], vectors[start:end])
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}
	return nil
}

func insertQuery(chunks []models.Chunk, vectors [][]float32) (string, []any, error) {
	q := psql.Insert(chunksTable).Columns("id", "source", "sequence", "content", "embedding")
	for i, c := range chunks {
		q = q.Values(c.ID, c.Source, c.Sequence, c.Content, pgtype.FlatArray[float32](vectors[i]))
	}
	return q.ToSql()
}

func (p *Postgres) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	query, args, err := psql.Select("id", "source", "sequence", "content", "embedding").
		From(chunksTable).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	qn := norm(vector)
	var hits []models.ScoredChunk
	for rows.Next() {
		var c models.Chunk
		var emb pgtype.FlatArray[float32]
		if err := rows.Scan(&c.ID, &c.Source, &c.Sequence, &c.Content, &emb); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec := []float32(emb)
		hits = append(hits, models.ScoredChunk{Chunk: c, Score: cosine(vector, qn, vec, norm(vec))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(chunksTable).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := p.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (p *Postgres) Sources(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("source").
		From(chunksTable).
		GroupBy("source").
		OrderBy("MIN(seq)").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Save only drops a marker: the rows are already durable.
func (p *Postgres) Save(ctx context.Context, dir string) error {
	n, err := p.Count(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte(strconv.Itoa(n)), 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, MarkerFile)); errors.Is(err, os.ErrNotExist) {
		return ErrNoExistingIndex
	}
	n, err := p.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoExistingIndex
	}
	p.logger.Info("Vector index attached", zap.String("backend", "postgres"), zap.Int("chunks", n))
	return nil
}
