package records

import "context"

// BatchItemError reports a single rejected item from a batch push, by its
// position in the submitted slice and the record id the origin facility used.
type BatchItemError struct {
	Index    int    `json:"index"`
	RecordID string `json:"record_id,omitempty"`
	Reason   string `json:"reason"`
}

// BatchResult summarises a batch push. Invalid items are skipped and
// reported; they never abort the rest of the batch.
type BatchResult struct {
	Stored int              `json:"stored"`
	Failed []BatchItemError `json:"failed,omitempty"`
}

type batchItem interface {
	Validate() error
	// RecordID is the origin facility's local id for the record, so a
	// rejected item can be reported by its key rather than just its slice
	// position.
	RecordID() string
}

// storeBatch validates and stores each item independently. prepare runs
// before validation, typically to stamp the owning facility. Storage errors
// abort the batch; validation errors only skip the item.
func storeBatch[T batchItem](ctx context.Context, items []T, prepare func(T), upsert func(context.Context, T) error) (*BatchResult, error) {
	res := &BatchResult{}
	for i, it := range items {
		prepare(it)
		if err := it.Validate(); err != nil {
			res.Failed = append(res.Failed, BatchItemError{Index: i, RecordID: it.RecordID(), Reason: err.Error()})
			continue
		}
		if err := upsert(ctx, it); err != nil {
			return nil, err
		}
		res.Stored++
	}
	return res, nil
}
