package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/markdave123-py/kodeks/internal/core/ingestion_engine"
)

const rule = "═══════════════════════════════════════════════════════════"

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, s *ingestion_engine.RunSummary) {
	fmt.Fprintln(w, rule)
	title := fmt.Sprintf("  Run %s (%s)", s.RunID, s.Profile)
	if s.DryRun {
		title += " - dry run, database untouched"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "Sources:")
	for _, src := range s.Sources {
		if src.Missing {
			fmt.Fprintf(w, "  %-4s missing (%s)\n", src.Statute, src.Path)
			continue
		}
		fmt.Fprintf(w, "  %-4s %6d kept of %6d\n", src.Statute, src.Kept, src.Raw)
	}
	fmt.Fprintf(w, "Fragments: %d\n", s.Fragments)

	if s.Profile == ingestion_engine.ProfileActs {
		c := s.Cumulation
		fmt.Fprintf(w, "Composites: %d (plain %d, cumulated %d, moved %d) over %d articles\n",
			c.Composites, c.Plain, c.Cumulated, c.Moved, c.Articles)
		fmt.Fprintf(w, "Detail rows removed as duplicates: %d\n", s.Deduplicated)
	}

	for _, e := range s.Embedding {
		fmt.Fprintf(w, "Embeddings %-15s %d embedded, %d failed, %d below threshold, %d batches, ~%d tokens\n",
			e.Table+":", e.Embedded, e.Failed, e.Skipped, e.Batches, e.Tokens)
	}

	fmt.Fprintln(w)
	for _, t := range s.Tables {
		fmt.Fprintf(w, "%-15s %6d rows  %6d with embedding  avg %4d / max %5d tokens\n",
			t.Table, t.Rows, t.WithEmbedding, t.AvgTokens, t.MaxTokens)
		fmt.Fprintf(w, "  %s\n", perAct(t.PerAct))
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(time.Millisecond))
}

func perAct(m map[string]int) string {
	acts := make([]string, 0, len(m))
	for act := range m {
		acts = append(acts, act)
	}
	sort.Strings(acts)
	parts := make([]string, len(acts))
	for i, act := range acts {
		parts[i] = fmt.Sprintf("%s=%d", act, m[act])
	}
	return strings.Join(parts, " ")
}
