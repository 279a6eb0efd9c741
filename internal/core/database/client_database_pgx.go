package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/kodeks/internal/config"
	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

type DatabaseClient struct {
	db  *sql.DB
	dim int
	log *logger.Logger
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DatabaseClient{db: db, dim: cfg.EmbedDim, log: log}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) ResetActsSchema(ctx context.Context) error {
	script, err := actsSchemaSQL(c.dim)
	if err != nil {
		return err
	}
	c.log.Info("resetting schema", "tables", []string{core.TableActs, core.TableActsCumulated}, "dim", c.dim)
	return runSchema(ctx, c.db, script)
}

func (c *DatabaseClient) ResetContextSchema(ctx context.Context) error {
	script, err := contextSchemaSQL()
	if err != nil {
		return err
	}
	c.log.Info("resetting schema", "tables", []string{core.TableContext})
	return runSchema(ctx, c.db, script)
}

// InsertRecords inserts records in a single transaction.
func (c *DatabaseClient) InsertRecords(ctx context.Context, table string, records []models.Record) error {
	withEmbedding, err := hasEmbedding(table)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, withEmbedding))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		if _, err := stmt.ExecContext(ctx, recordArgs(&records[i], withEmbedding)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s row %d (%s): %w", table, i, records[i].Key(), err)
		}
	}
	return tx.Commit()
}

func hasEmbedding(table string) (bool, error) {
	switch table {
	case core.TableActs, core.TableActsCumulated:
		return true, nil
	case core.TableContext:
		return false, nil
	}
	return false, fmt.Errorf("unknown table %q", table)
}

func insertSQL(table string, withEmbedding bool) string {
	cols := []string{"act", "art_no", "par_no", "pkt_no", "text", "text_clean", "token_count"}
	if withEmbedding {
		cols = append(cols, "embedding")
	}
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func recordArgs(r *models.Record, withEmbedding bool) []any {
	args := []any{
		r.Act,
		nullString(r.ArtNo),
		r.ParNo.Column(),
		r.PktNo.Column(),
		r.Text,
		nullString(r.TextClean),
		r.TokenCount,
	}
	if withEmbedding {
		var emb any
		if r.Embedding != nil {
			emb = pgvector.NewVector(r.Embedding)
		}
		args = append(args, emb)
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const (
	cumulatedPredicate = `(par_no = 'cumulated' OR pkt_no = 'cumulated')`
	singlePredicate    = `(par_no IS DISTINCT FROM 'cumulated' AND pkt_no IS DISTINCT FROM 'cumulated')`
)

// searchSQL builds the similarity query over acts_cumulated for q.
func searchSQL(q models.SearchQuery) (string, []any) {
	args := []any{pgvector.NewVector(q.Vector)}
	where := []string{"embedding IS NOT NULL"}
	if q.Kind == models.HitCumulated {
		where = append(where, cumulatedPredicate)
	} else {
		where = append(where, singlePredicate)
	}
	if len(q.Acts) > 0 {
		args = append(args, q.Acts)
		where = append(where, fmt.Sprintf("act = ANY($%d)", len(args)))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, act, art_no, par_no, pkt_no, text, text_clean, token_count,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, core.TableActsCumulated, strings.Join(where, " AND "), len(args))
	return query, args
}

func (c *DatabaseClient) SearchActs(ctx context.Context, q models.SearchQuery) ([]models.SearchHit, error) {
	query, args := searchSQL(q)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var (
			h          models.SearchHit
			art, clean sql.NullString
			par, pkt   sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.Act, &art, &par, &pkt, &h.Text, &clean, &h.TokenCount, &h.Similarity); err != nil {
			return nil, err
		}
		h.ArtNo, h.TextClean = art.String, clean.String
		h.ParNo, h.PktNo = models.ParseTag(par), models.ParseTag(pkt)
		h.Kind = q.Kind
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetArticleFragments returns every context row of one article in insertion order.
func (c *DatabaseClient) GetArticleFragments(ctx context.Context, act, article string) ([]models.Record, error) {
	const q = `
		SELECT id, act, art_no, par_no, pkt_no, text, text_clean, token_count
		FROM context
		WHERE act = $1 AND art_no = $2
		ORDER BY id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, act, article)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r          models.Record
			art, clean sql.NullString
			par, pkt   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Act, &art, &par, &pkt, &r.Text, &clean, &r.TokenCount); err != nil {
			return nil, err
		}
		r.ArtNo, r.TextClean = art.String, clean.String
		r.ParNo, r.PktNo = models.ParseTag(par), models.ParseTag(pkt)
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ core.ActsStore = (*DatabaseClient)(nil)
