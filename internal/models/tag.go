package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strconv"
)

// NullKey is the grouping key used for an absent paragraph or point.
const NullKey = "null"

const (
	tagCumulated = "cumulated"
	tagMoved     = "moved"
)

// TagKind says what a paragraph/point slot of a record holds.
type TagKind uint8

const (
	TagNone TagKind = iota
	TagValue
	TagCumulated
	TagMoved
)

func (k TagKind) String() string {
	switch k {
	case TagValue:
		return "value"
	case TagCumulated:
		return tagCumulated
	case TagMoved:
		return tagMoved
	default:
		return "none"
	}
}

// Tag is the paragraph or point slot of a record: absent, a literal number,
// or the structural status of a composite.
type Tag struct {
	Kind  TagKind
	Value string
}

var (
	None      = Tag{Kind: TagNone}
	Cumulated = Tag{Kind: TagCumulated}
	Moved     = Tag{Kind: TagMoved}
)

// ValueTag wraps a literal paragraph or point number.
func ValueTag(v string) Tag { return Tag{Kind: TagValue, Value: v} }

// TagFromNumber returns None for an empty number and a value tag otherwise.
func TagFromNumber(v string) Tag {
	if v == "" {
		return None
	}
	return ValueTag(v)
}

// StatusTag returns Cumulated when more than one fragment was merged and Moved otherwise.
func StatusTag(sources int) Tag {
	if sources > 1 {
		return Cumulated
	}
	return Moved
}

func (t Tag) IsNone() bool      { return t.Kind == TagNone }
func (t Tag) IsValue() bool     { return t.Kind == TagValue }
func (t Tag) IsCumulated() bool { return t.Kind == TagCumulated }
func (t Tag) IsMoved() bool     { return t.Kind == TagMoved }

// Column is the text stored in the par_no/pkt_no columns.
func (t Tag) Column() sql.NullString {
	switch t.Kind {
	case TagValue:
		return sql.NullString{String: t.Value, Valid: true}
	case TagCumulated:
		return sql.NullString{String: tagCumulated, Valid: true}
	case TagMoved:
		return sql.NullString{String: tagMoved, Valid: true}
	default:
		return sql.NullString{}
	}
}

// Key is the column text, or "null" when absent.
func (t Tag) Key() string {
	c := t.Column()
	if !c.Valid {
		return NullKey
	}
	return c.String
}

func (t Tag) String() string { return t.Key() }

// ParseTag reads a par_no/pkt_no column back into a Tag.
func ParseTag(col sql.NullString) Tag {
	if !col.Valid || IsNullish(col.String) {
		return None
	}
	switch col.String {
	case tagCumulated:
		return Cumulated
	case tagMoved:
		return Moved
	}
	return ValueTag(col.String)
}

func (t Tag) MarshalJSON() ([]byte, error) {
	c := t.Column()
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.String)
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	var s JSONText
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*t = ParseTag(sql.NullString{String: string(s), Valid: !s.IsNull()})
	return nil
}

// JSONText is a source field that may arrive as a string, a number or null.
// Null and the textual null sentinels all decode to "".
type JSONText string

func (s *JSONText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = JSONText(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = JSONText(n.String())
	return nil
}

// IsNull reports whether the field holds no usable value.
func (s JSONText) IsNull() bool { return IsNullish(string(s)) }

// Value returns the field, or "" for any null sentinel.
func (s JSONText) Value() string {
	if s.IsNull() {
		return ""
	}
	return string(s)
}

// IsNullish reports whether v is one of the null sentinels found in source files.
func IsNullish(v string) bool {
	switch v {
	case "", NullKey, "None":
		return true
	}
	return false
}
