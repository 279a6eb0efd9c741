package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/markdave123-py/kodeks/internal/config"
	"github.com/markdave123-py/kodeks/internal/core"
	db "github.com/markdave123-py/kodeks/internal/core/database"
	"github.com/markdave123-py/kodeks/internal/core/ingestion_engine"
	"github.com/markdave123-py/kodeks/internal/core/llm"
	objectclient "github.com/markdave123-py/kodeks/internal/core/object-client"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/services"
)

// App holds the long-lived clients of one command invocation.
type App struct {
	Store    core.ActsStore
	Embedder core.EmbeddingProvider
	Objects  core.ObjectClient
	Log      *logger.Logger

	cfg *config.Config
}

type Options struct {
	Database bool
	Embedder bool
	Objects  bool
}

// NewApp opens only the clients opts asks for.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Log: log, cfg: cfg}

	if opts.Database {
		client, err := db.NewDatabaseClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.Store = client
		log.Info("database ready")
	}

	if opts.Embedder {
		emb, err := llm.NewEmbedder(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		a.Embedder = emb
	}

	if opts.Objects && needsS3(cfg) {
		s3c, err := objectclient.NewS3Client(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Objects = s3c
	}
	return a, nil
}

func needsS3(cfg *config.Config) bool {
	if cfg.BackupBucket != "" {
		return true
	}
	for _, s := range cfg.Sources {
		if strings.HasPrefix(s.Path, "s3://") {
			return true
		}
	}
	return false
}

// Pipeline assembles an ingestion pipeline from the opened clients.
func (a *App) Pipeline(ic *ingestion_engine.IngestConfig) *ingestion_engine.Pipeline {
	var backup *ingestion_engine.Backup
	switch {
	case a.cfg.BackupBucket != "" && a.Objects != nil:
		backup = &ingestion_engine.Backup{Client: a.Objects, Bucket: a.cfg.BackupBucket}
	case a.cfg.BackupDir != "":
		backup = &ingestion_engine.Backup{Client: objectclient.NewLocalClient(a.cfg.BackupDir)}
	}
	loader := ingestion_engine.NewLoader(a.Objects, a.Log)
	return ingestion_engine.NewPipeline(a.Store, loader, a.Embedder, backup, ic, a.Log)
}

// Sources converts the configured sources for the loader.
func (a *App) Sources() []ingestion_engine.SourceFile {
	out := make([]ingestion_engine.SourceFile, len(a.cfg.Sources))
	for i, s := range a.cfg.Sources {
		out[i] = ingestion_engine.SourceFile{Statute: s.Act, Path: s.Path}
	}
	return out
}

func (a *App) SearchService() *services.SearchService {
	return services.NewSearchService(a.Store, a.Embedder, a.cfg.QueryCacheTTL, a.Log)
}

func (a *App) ContextService() *services.ContextService {
	return services.NewContextService(a.Store, a.Log)
}

func (a *App) Close() {
	if c, ok := a.Embedder.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("close embedder", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
	}
}
