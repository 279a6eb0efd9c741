package ingestion_engine

import "github.com/markdave123-py/kodeks/internal/models"

func detailKey(statute, article, paragraph string) string {
	return statute + "|" + article + "|" + paragraph
}

// ExclusionKeys returns the (statute, article, paragraph-or-"null") keys whose
// detail fragments are already fully represented by a composite: moved
// composites and plain, structure-less articles.
func ExclusionKeys(composites []models.CompositeRecord) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, c := range composites {
		if c.Point.IsMoved() {
			keys[detailKey(c.Statute, c.Article, c.Paragraph.Key())] = struct{}{}
		}
		if c.Paragraph.IsMoved() {
			keys[detailKey(c.Statute, c.Article, models.NullKey)] = struct{}{}
		}
		if c.Paragraph.IsNone() && c.Point.IsNone() {
			keys[detailKey(c.Statute, c.Article, models.NullKey)] = struct{}{}
		}
	}
	return keys
}

// Dedupe drops the fragments duplicated by a composite and keeps the rest in order.
func Dedupe(fragments []models.Fragment, composites []models.CompositeRecord) []models.Fragment {
	excluded := ExclusionKeys(composites)
	out := make([]models.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if _, drop := excluded[detailKey(f.Statute, f.Article, f.ParagraphKey())]; drop {
			continue
		}
		out = append(out, f)
	}
	return out
}
