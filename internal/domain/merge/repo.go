package merge

import (
	"context"
	"errors"
)

var ErrNoSuchMerge = errors.New("merge record not found")

type MergeRepository interface {
	Create(ctx context.Context, m *DemographicMerged) error
	// FindActive returns the live merge row for the exact child/parent pair,
	// or ErrNoSuchMerge.
	FindActive(ctx context.Context, facilityID, childID, parentID int) (*DemographicMerged, error)
	// ActiveByChild returns the live merge row the child belongs to, or
	// nil when it is not merged.
	ActiveByChild(ctx context.Context, facilityID, childID int) (*DemographicMerged, error)
	// ActiveByParent returns the live merge rows folded into the parent.
	ActiveByParent(ctx context.Context, facilityID, parentID int) ([]*DemographicMerged, error)
	// MarkDeleted soft-deletes a merge row.
	MarkDeleted(ctx context.Context, id int, user string) error
}
