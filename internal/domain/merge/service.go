package merge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSelfMerge     = errors.New("cannot merge a demographic into itself")
	ErrAlreadyMerged = errors.New("demographic is already merged")
	ErrMergeChain    = errors.New("merge chains are not allowed")
)

// Service manages duplicate-demographic merges at a facility. Merges never
// form chains: a parent cannot itself be a child, and a child cannot carry
// its own children into a merge.
type Service struct {
	repo MergeRepository

	// Serializes merge/unmerge so concurrent calls cannot interleave the
	// chain checks with the writes.
	mu sync.Mutex
}

func NewService(repo MergeRepository) *Service {
	return &Service{repo: repo}
}

// Merge folds each child into the parent. An empty child list is a no-op.
func (s *Service) Merge(ctx context.Context, facilityID, parentID int, childIDs []int, providerID string) error {
	if len(childIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A parent that is itself merged into something else would make a chain.
	if m, err := s.repo.ActiveByChild(ctx, facilityID, parentID); err != nil {
		return err
	} else if m != nil {
		return ErrMergeChain
	}

	for _, childID := range childIDs {
		if childID == parentID {
			return ErrSelfMerge
		}
		if m, err := s.repo.ActiveByChild(ctx, facilityID, childID); err != nil {
			return err
		} else if m != nil {
			return fmt.Errorf("%w: demographic %d", ErrAlreadyMerged, childID)
		}
		// A child with its own merged children would make a chain too.
		children, err := s.repo.ActiveByParent(ctx, facilityID, childID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return ErrMergeChain
		}
	}

	user := providerID
	for _, childID := range childIDs {
		m := &DemographicMerged{
			FacilityID:     facilityID,
			ChildID:        childID,
			ParentID:       parentID,
			LastUpdateUser: &user,
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Unmerge reverses the merge of each child out of the parent. Unmerging a
// pair that was never merged is an error; an empty child list is a no-op.
func (s *Service) Unmerge(ctx context.Context, facilityID, parentID int, childIDs []int, providerID string) error {
	if len(childIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, childID := range childIDs {
		m, err := s.repo.FindActive(ctx, facilityID, childID, parentID)
		if err != nil {
			return err
		}
		if err := s.repo.MarkDeleted(ctx, m.ID, providerID); err != nil {
			return err
		}
	}
	return nil
}

// MergedChildren returns the live merge rows folded into the parent.
func (s *Service) MergedChildren(ctx context.Context, facilityID, parentID int) ([]*DemographicMerged, error) {
	return s.repo.ActiveByParent(ctx, facilityID, parentID)
}

// MergedInto reports the parent a demographic is merged into, or nil.
func (s *Service) MergedInto(ctx context.Context, facilityID, demographicID int) (*DemographicMerged, error) {
	return s.repo.ActiveByChild(ctx, facilityID, demographicID)
}
