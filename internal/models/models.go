package models

import (
	"fmt"
	"strings"
)

// RepealedSentinel is the normalized text of a provision that was formally repealed.
const RepealedSentinel = "(uchylony)"

// RawFragment is one row of a source statute file, before any processing.
// Statute is not part of the JSON; the loader sets it from the file definition.
type RawFragment struct {
	Statute  string   `json:"-"`
	ArtNo    JSONText `json:"art_no"`
	ArtIndex JSONText `json:"art_index"`
	ParNo    JSONText `json:"par_no"`
	ParIndex JSONText `json:"par_index"`
	PktNo    JSONText `json:"pkt_no"`
	Text     JSONText `json:"text"`
}

// Fragment is a loaded RawFragment with index suffixes merged and both text
// normalizations attached. Empty Article/Paragraph/Point mean "absent".
type Fragment struct {
	Statute       string `json:"act"`
	Article       string `json:"art_no"`
	Paragraph     string `json:"par_no"`
	Point         string `json:"pkt_no"`
	RawText       string `json:"-"`
	DisplayText   string `json:"text"`
	EmbeddingText string `json:"text_clean"`
	TokenEstimate int    `json:"token_count"`
}

// ParagraphKey returns the paragraph number, or "null" when absent.
func (f Fragment) ParagraphKey() string {
	if f.Paragraph == "" {
		return NullKey
	}
	return f.Paragraph
}

// Record converts the fragment to a persistable row.
func (f Fragment) Record() Record {
	return Record{
		Act:        f.Statute,
		ArtNo:      f.Article,
		ParNo:      TagFromNumber(f.Paragraph),
		PktNo:      TagFromNumber(f.Point),
		Text:       f.DisplayText,
		TextClean:  f.EmbeddingText,
		TokenCount: f.TokenEstimate,
	}
}

// CompositeRecord is the result of merging the fragments of one article
// (or of one paragraph of an article) into a single unit.
type CompositeRecord struct {
	Statute       string `json:"act"`
	Article       string `json:"art_no"`
	Paragraph     Tag    `json:"par_no"`
	Point         Tag    `json:"pkt_no"`
	Text          string `json:"text"`
	EmbeddingText string `json:"text_clean"`
	TokenEstimate int    `json:"token_count"`
	// Sources is how many fragments were merged into this record.
	Sources int `json:"-"`
}

// Record converts the composite to a persistable row.
func (c CompositeRecord) Record() Record {
	return Record{
		Act:        c.Statute,
		ArtNo:      c.Article,
		ParNo:      c.Paragraph,
		PktNo:      c.Point,
		Text:       c.Text,
		TextClean:  c.EmbeddingText,
		TokenCount: c.TokenEstimate,
	}
}

// Record is one row of the acts, acts_cumulated or context tables.
// A nil Embedding means "no embedding" and is stored as NULL.
type Record struct {
	ID         int64     `db:"id" json:"id,omitempty"`
	Act        string    `db:"act" json:"act"`
	ArtNo      string    `db:"art_no" json:"art_no"`
	ParNo      Tag       `db:"par_no" json:"par_no"`
	PktNo      Tag       `db:"pkt_no" json:"pkt_no"`
	Text       string    `db:"text" json:"text"`
	TextClean  string    `db:"text_clean" json:"text_clean"`
	TokenCount int       `db:"token_count" json:"token_count"`
	Embedding  []float32 `db:"embedding" json:"embedding,omitempty"` // pgvector column
}

// Tokens returns the record's token estimate; it is the batching weight.
func (r Record) Tokens() int { return r.TokenCount }

// Key identifies a record by (act, art_no, par_no, pkt_no).
func (r Record) Key() string {
	return strings.Join([]string{r.Act, r.ArtNo, r.ParNo.Key(), r.PktNo.Key()}, "|")
}

func (r Record) String() string {
	return fmt.Sprintf("%s art. %s par. %s pkt. %s", r.Act, r.ArtNo, r.ParNo.Key(), r.PktNo.Key())
}

// SearchHit is a row returned by a similarity search over acts_cumulated.
type SearchHit struct {
	Record
	Similarity float64 `json:"similarity"`
	// Kind is "c" for cumulated rows and "s" for single rows.
	Kind string `json:"type"`
}

// Hit kinds.
const (
	HitCumulated = "c"
	HitSingle    = "s"
)

// SearchQuery selects rows of acts_cumulated by cosine similarity to Vector.
// Kind is HitCumulated for rows with a cumulated tag and HitSingle for the rest.
// An empty Acts slice searches every statute.
type SearchQuery struct {
	Vector []float32
	Kind   string
	Acts   []string
	Limit  int
}
