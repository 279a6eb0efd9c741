package ingestion_engine

import (
	"strings"

	"github.com/markdave123-py/kodeks/internal/models"
)

// CumulationStats summarizes one Cumulate call.
type CumulationStats struct {
	Articles   int `json:"articles"`
	Composites int `json:"composites"`
	Plain      int `json:"plain"`
	Cumulated  int `json:"cumulated"`
	Moved      int `json:"moved"`
}

// Cumulate merges the fragments of each (statute, article) into composite
// records. Groups are emitted in the order their first fragment appears.
//
// Per group, depending on which levels are present:
//
//	no paragraph, no point: one plain composite, fragments in input order.
//	points only:            one composite, point tag cumulated/moved.
//	paragraphs only:        one composite, paragraph tag cumulated/moved.
//	both:                   one composite per paragraph, point tag cumulated/moved.
//
// Fragments without the lower level always lead; otherwise input order is kept.
func Cumulate(fragments []models.Fragment) ([]models.CompositeRecord, CumulationStats) {
	var (
		out   []models.CompositeRecord
		stats CumulationStats
	)

	articles := groupOrdered(fragments, func(f models.Fragment) string {
		return f.Statute + "|" + f.Article
	})
	for _, items := range articles {
		valid := make([]models.Fragment, 0, len(items))
		for _, f := range items {
			if f.EmbeddingText != models.RepealedSentinel {
				valid = append(valid, f)
			}
		}
		if len(valid) == 0 {
			continue
		}
		stats.Articles++

		hasPar, hasPkt := false, false
		for _, f := range valid {
			hasPar = hasPar || f.Paragraph != ""
			hasPkt = hasPkt || f.Point != ""
		}

		switch {
		case !hasPar && !hasPkt:
			out = append(out, composite(valid, models.None, models.None))

		case !hasPar && hasPkt:
			sorted := nullFirst(valid, func(f models.Fragment) bool { return f.Point == "" })
			out = append(out, composite(sorted, models.None, models.StatusTag(len(valid))))

		case hasPar && !hasPkt:
			sorted := nullFirst(valid, func(f models.Fragment) bool { return f.Paragraph == "" })
			out = append(out, composite(sorted, models.StatusTag(len(valid)), models.None))

		default:
			for _, par := range groupOrdered(valid, models.Fragment.ParagraphKey) {
				sorted := nullFirst(par, func(f models.Fragment) bool { return f.Point == "" })
				parTag := models.TagFromNumber(par[0].Paragraph)
				out = append(out, composite(sorted, parTag, models.StatusTag(len(par))))
			}
		}
	}

	for _, c := range out {
		switch {
		case c.Paragraph.IsCumulated() || c.Point.IsCumulated():
			stats.Cumulated++
		case c.Paragraph.IsMoved() || c.Point.IsMoved():
			stats.Moved++
		default:
			stats.Plain++
		}
	}
	stats.Composites = len(out)
	return out, stats
}

func composite(items []models.Fragment, par, pkt models.Tag) models.CompositeRecord {
	texts := make([]string, len(items))
	clean := make([]string, len(items))
	for i, f := range items {
		texts[i] = f.DisplayText
		clean[i] = f.EmbeddingText
	}
	embedding := strings.Join(clean, " ")
	return models.CompositeRecord{
		Statute:       items[0].Statute,
		Article:       items[0].Article,
		Paragraph:     par,
		Point:         pkt,
		Text:          strings.Join(texts, " "),
		EmbeddingText: embedding,
		TokenEstimate: EstimateTokens(embedding),
		Sources:       len(items),
	}
}

// nullFirst is a stable partition: items for which isNull holds come first,
// relative order is otherwise untouched.
func nullFirst(items []models.Fragment, isNull func(models.Fragment) bool) []models.Fragment {
	out := make([]models.Fragment, 0, len(items))
	for _, f := range items {
		if isNull(f) {
			out = append(out, f)
		}
	}
	for _, f := range items {
		if !isNull(f) {
			out = append(out, f)
		}
	}
	return out
}

// groupOrdered groups items by key, in order of each key's first appearance.
func groupOrdered[T any](items []T, key func(T) string) [][]T {
	idx := make(map[string]int)
	var groups [][]T
	for _, it := range items {
		k := key(it)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], it)
	}
	return groups
}
