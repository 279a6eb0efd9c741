package db

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"text/template"

	"github.com/markdave123-py/kodeks/internal/core"
)

//go:embed scripts/*.sql
var schemaFS embed.FS

var schemas = template.Must(template.ParseFS(schemaFS, "scripts/*.sql"))

// hnsw indexes are limited to 2000 dimensions.
const maxHNSWDim = 2000

type actsSchema struct {
	Tables []string
	Dim    int
	HNSW   bool
}

type contextSchema struct {
	Table string
}

func renderSchema(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := schemas.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func actsSchemaSQL(dim int) (string, error) {
	return renderSchema("acts_schema.sql", actsSchema{
		Tables: []string{core.TableActs, core.TableActsCumulated},
		Dim:    dim,
		HNSW:   dim <= maxHNSWDim,
	})
}

func contextSchemaSQL() (string, error) {
	return renderSchema("context_schema.sql", contextSchema{Table: core.TableContext})
}

// runSchema executes a rendered script in one transaction.
func runSchema(ctx context.Context, db *sql.DB, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
