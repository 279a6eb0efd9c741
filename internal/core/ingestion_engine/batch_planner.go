package ingestion_engine

// Weighted is anything the planner can pack; Tokens is its weight.
type Weighted interface {
	Tokens() int
}

// Batch is one embedding request worth of records.
//
// Items:  records in input order.
// Tokens: sum of the records' token estimates.
type Batch[T Weighted] struct {
	Items  []T
	Tokens int
}

// PlanBatches packs records greedily, in order, into batches of at most
// maxItems records and at most maxTokens tokens. A record heavier than
// maxTokens gets a batch of its own; records are never split.
// A non-positive limit disables that constraint.
func PlanBatches[T Weighted](records []T, maxItems, maxTokens int) []Batch[T] {
	var (
		out []Batch[T]
		cur Batch[T]
	)

	flush := func() {
		if len(cur.Items) == 0 {
			return
		}
		out = append(out, cur)
		cur = Batch[T]{}
	}

	for _, r := range records {
		w := r.Tokens()
		overTokens := maxTokens > 0 && cur.Tokens+w > maxTokens
		full := maxItems > 0 && len(cur.Items) >= maxItems
		if overTokens || full {
			flush()
		}
		cur.Items = append(cur.Items, r)
		cur.Tokens += w
	}
	flush()
	return out
}
