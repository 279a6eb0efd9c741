package core

import (
	"context"
	"errors"

	"github.com/markdave123-py/kodeks/internal/models"
)

// Tables written by the pipelines.
const (
	TableActs          = "acts"
	TableActsCumulated = "acts_cumulated"
	TableContext       = "context"
)

// ErrObjectNotFound is returned by an ObjectClient when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ActsStore is the persistence sink for statute records and the read side
// used by search and context lookups.
type ActsStore interface {
	// ResetActsSchema drops and recreates acts and acts_cumulated.
	ResetActsSchema(ctx context.Context) error
	// ResetContextSchema drops and recreates context.
	ResetContextSchema(ctx context.Context) error
	// InsertRecords writes records to table in one transaction.
	InsertRecords(ctx context.Context, table string, records []models.Record) error

	SearchActs(ctx context.Context, query models.SearchQuery) ([]models.SearchHit, error)
	GetArticleFragments(ctx context.Context, act, article string) ([]models.Record, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
