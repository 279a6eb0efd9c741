package ingestion_engine

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/markdave123-py/kodeks/internal/models"
)

var leadingIntRe = regexp.MustCompile(`^\d+`)

// SortNatural orders fragments for display: statutes in the given order
// (unknown statutes last), then article, paragraph and point numerically by
// their leading integer. A missing paragraph or point sorts first.
func SortNatural(fragments []models.Fragment, statuteOrder []string) []models.Fragment {
	rank := make(map[string]int, len(statuteOrder))
	for i, s := range statuteOrder {
		rank[s] = i
	}
	statuteRank := func(s string) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(statuteOrder)
	}

	out := slices.Clone(fragments)
	slices.SortStableFunc(out, func(a, b models.Fragment) int {
		if c := cmp.Compare(statuteRank(a.Statute), statuteRank(b.Statute)); c != 0 {
			return c
		}
		if c := compareNumbered(a.Article, b.Article); c != 0 {
			return c
		}
		if c := compareNullFirst(a.Paragraph, b.Paragraph); c != 0 {
			return c
		}
		if a.Paragraph != "" {
			if c := compareNumbered(a.Paragraph, b.Paragraph); c != 0 {
				return c
			}
		}
		if c := compareNullFirst(a.Point, b.Point); c != 0 {
			return c
		}
		return cmp.Compare(pointNumber(a.Point), pointNumber(b.Point))
	})
	return out
}

func compareNullFirst(a, b string) int {
	switch {
	case a == "" && b != "":
		return -1
	case a != "" && b == "":
		return 1
	}
	return 0
}

// compareNumbered compares by leading integer, then lexically: 115 < 115(20) < 116.
func compareNumbered(a, b string) int {
	if c := cmp.Compare(leadingInt(a), leadingInt(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func leadingInt(s string) int {
	n, _ := strconv.Atoi(leadingIntRe.FindString(s))
	return n
}

// pointNumber is the integer value of a point label; "3a" is 3, "b" is 0.
func pointNumber(s string) int {
	return leadingInt(strings.TrimSpace(s))
}
