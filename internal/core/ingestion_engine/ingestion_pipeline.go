package ingestion_engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

// Backup object names, prefixed with the run id.
const (
	BackupCumulated = "acts-cumulated-backup.json"
	BackupDetails   = "acts-details-backup.json"
)

// TableSummary describes the rows produced for one table.
type TableSummary struct {
	Table         string         `json:"table" yaml:"table"`
	Rows          int            `json:"rows" yaml:"rows"`
	WithEmbedding int            `json:"with_embedding" yaml:"with_embedding"`
	AvgTokens     int            `json:"avg_tokens" yaml:"avg_tokens"`
	MaxTokens     int            `json:"max_tokens" yaml:"max_tokens"`
	PerAct        map[string]int `json:"per_act" yaml:"per_act"`
}

// RunSummary is what an operator sees at the end of a run.
type RunSummary struct {
	RunID        string          `json:"run_id"`
	Profile      Profile         `json:"profile"`
	DryRun       bool            `json:"dry_run"`
	Sources      []StatuteCount  `json:"sources"`
	Fragments    int             `json:"fragments"`
	Cumulation   CumulationStats `json:"cumulation"`
	Deduplicated int             `json:"deduplicated"`
	Embedding    []EmbedStats    `json:"embedding,omitempty"`
	Tables       []TableSummary  `json:"tables"`
	Duration     time.Duration   `json:"duration"`
}

// NewPipeline wires a pipeline. store may be nil only for dry runs; embedder
// may be nil when cfg.Embed is false.
func NewPipeline(store core.ActsStore, loader *Loader, embedder core.EmbeddingProvider, backup *Backup, cfg *IngestConfig, log *logger.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		loader:   loader,
		embedder: embedder,
		backup:   backup,
		cfg:      cfg,
		log:      log,
	}
}

// Run loads the sources and executes the configured profile. Loader and
// persistence errors abort the run; embedding failures do not.
func (p *Pipeline) Run(ctx context.Context, sources []SourceFile) (*RunSummary, error) {
	start := time.Now()
	sum := &RunSummary{RunID: uuid.NewString(), Profile: p.cfg.Profile, DryRun: p.cfg.DryRun}
	log := p.log.With("run_id", sum.RunID, "profile", p.cfg.Profile)

	if p.store == nil && !p.cfg.DryRun {
		return nil, errors.New("no store configured")
	}
	if p.embeddingOn() && p.embedder == nil {
		return nil, errors.New("embeddings enabled but no provider configured")
	}

	fragments, counts, err := p.loader.Load(ctx, sources, p.cfg.SampleSize, p.cfg.SampleSeed)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	sum.Sources = counts
	sum.Fragments = len(fragments)
	log.Info("fragments loaded", "fragments", len(fragments), "sources", len(sources))

	switch p.cfg.Profile {
	case ProfileContext:
		err = p.runContext(ctx, log, sources, fragments, sum)
	default:
		err = p.runActs(ctx, log, fragments, sum)
	}
	sum.Duration = time.Since(start)
	if err != nil {
		return sum, err
	}
	log.Info("run finished", "duration", sum.Duration.Round(time.Millisecond))
	return sum, nil
}

func (p *Pipeline) embeddingOn() bool {
	return p.cfg.Embed && p.cfg.Profile != ProfileContext
}

func (p *Pipeline) runActs(ctx context.Context, log *logger.Logger, fragments []models.Fragment, sum *RunSummary) error {
	composites, cstats := Cumulate(fragments)
	sum.Cumulation = cstats
	log.Info("cumulation done",
		"fragments", len(fragments), "composites", cstats.Composites,
		"cumulated", cstats.Cumulated, "moved", cstats.Moved, "plain", cstats.Plain)

	details := Dedupe(fragments, composites)
	sum.Deduplicated = len(fragments) - len(details)
	log.Info("duplicates removed", "removed", sum.Deduplicated, "kept", len(details))

	cumulated := make([]models.Record, len(composites))
	for i, c := range composites {
		cumulated[i] = c.Record()
	}
	detailed := fragmentRecords(details)

	if p.embeddingOn() {
		p.logEstimate(log, cumulated, detailed)
		stage := NewEmbedStage(p.embedder, p.cfg, log)

		var (
			st  EmbedStats
			err error
		)
		cumulated, st, err = stage.Run(ctx, core.TableActsCumulated, cumulated, p.cfg.MinTokensCumulated)
		if err != nil {
			return fmt.Errorf("embed %s: %w", core.TableActsCumulated, err)
		}
		sum.Embedding = append(sum.Embedding, st)
		p.saveBackup(ctx, log, sum.RunID, BackupCumulated, cumulated)

		detailed, st, err = stage.Run(ctx, core.TableActs, detailed, p.cfg.MinTokensActs)
		if err != nil {
			return fmt.Errorf("embed %s: %w", core.TableActs, err)
		}
		sum.Embedding = append(sum.Embedding, st)
		p.saveBackup(ctx, log, sum.RunID, BackupDetails, detailed)
	} else {
		log.Info("embeddings disabled, storing records without vectors")
	}

	sum.Tables = []TableSummary{
		summarizeTable(core.TableActs, detailed),
		summarizeTable(core.TableActsCumulated, cumulated),
	}

	if p.cfg.DryRun {
		log.Info("dry run, database untouched")
		return nil
	}
	if err := p.store.ResetActsSchema(ctx); err != nil {
		return fmt.Errorf("reset acts schema: %w", err)
	}
	if err := p.persist(ctx, log, core.TableActs, detailed); err != nil {
		return err
	}
	return p.persist(ctx, log, core.TableActsCumulated, cumulated)
}

func (p *Pipeline) runContext(ctx context.Context, log *logger.Logger, sources []SourceFile, fragments []models.Fragment, sum *RunSummary) error {
	order := make([]string, 0, len(sources))
	for _, s := range sources {
		order = append(order, s.Statute)
	}
	records := fragmentRecords(SortNatural(fragments, order))
	log.Info("records sorted", "records", len(records))

	sum.Tables = []TableSummary{summarizeTable(core.TableContext, records)}

	if p.cfg.DryRun {
		log.Info("dry run, database untouched")
		return nil
	}
	if err := p.store.ResetContextSchema(ctx); err != nil {
		return fmt.Errorf("reset context schema: %w", err)
	}
	return p.persist(ctx, log, core.TableContext, records)
}

func (p *Pipeline) persist(ctx context.Context, log *logger.Logger, table string, records []models.Record) error {
	if err := p.store.InsertRecords(ctx, table, records); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	log.Info("table written", "table", table, "rows", len(records))
	return nil
}

// logEstimate reports how much will be sent to the provider before any call is made.
func (p *Pipeline) logEstimate(log *logger.Logger, cumulated, detailed []models.Record) {
	cum, cumTokens := Eligible(cumulated, p.cfg.MinTokensCumulated)
	det, detTokens := Eligible(detailed, p.cfg.MinTokensActs)
	log.Info("embedding estimate",
		core.TableActsCumulated, len(cum), core.TableActsCumulated+"_tokens", cumTokens,
		core.TableActs, len(det), core.TableActs+"_tokens", detTokens,
		"total_tokens", cumTokens+detTokens)
}

// saveBackup stores records as indented JSON. A failed backup is logged, not fatal.
func (p *Pipeline) saveBackup(ctx context.Context, log *logger.Logger, runID, name string, records []models.Record) {
	if p.backup == nil || p.backup.Client == nil {
		return
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Warn("backup encode failed", "name", name, "error", err)
		return
	}
	key := path.Join(runID, name)
	url, err := p.backup.Client.UploadFile(ctx, p.backup.Bucket, key, data, "application/json")
	if err != nil {
		log.Warn("backup failed", "name", name, "error", err)
		return
	}
	log.Info("backup saved", "location", url, "bytes", len(data))
}

func fragmentRecords(fragments []models.Fragment) []models.Record {
	out := make([]models.Record, len(fragments))
	for i, f := range fragments {
		out[i] = f.Record()
	}
	return out
}

func summarizeTable(table string, records []models.Record) TableSummary {
	ts := TableSummary{Table: table, Rows: len(records), PerAct: make(map[string]int)}
	total := 0
	for _, r := range records {
		total += r.TokenCount
		ts.MaxTokens = max(ts.MaxTokens, r.TokenCount)
		if r.Embedding != nil {
			ts.WithEmbedding++
		}
		ts.PerAct[r.Act]++
	}
	if len(records) > 0 {
		ts.AvgTokens = (total + len(records)/2) / len(records)
	}
	return ts
}
