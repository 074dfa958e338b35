package merge

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockMergeRepo struct {
	rows   []*DemographicMerged
	nextID int
}

func (m *mockMergeRepo) Create(ctx context.Context, row *DemographicMerged) error {
	m.nextID++
	row.ID = m.nextID
	row.CreatedAt = time.Now()
	row.LastUpdateDate = row.CreatedAt
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockMergeRepo) FindActive(ctx context.Context, facilityID, childID, parentID int) (*DemographicMerged, error) {
	for _, r := range m.rows {
		if !r.Deleted && r.FacilityID == facilityID && r.ChildID == childID && r.ParentID == parentID {
			return r, nil
		}
	}
	return nil, ErrNoSuchMerge
}

func (m *mockMergeRepo) ActiveByChild(ctx context.Context, facilityID, childID int) (*DemographicMerged, error) {
	for _, r := range m.rows {
		if !r.Deleted && r.FacilityID == facilityID && r.ChildID == childID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockMergeRepo) ActiveByParent(ctx context.Context, facilityID, parentID int) ([]*DemographicMerged, error) {
	var out []*DemographicMerged
	for _, r := range m.rows {
		if !r.Deleted && r.FacilityID == facilityID && r.ParentID == parentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockMergeRepo) MarkDeleted(ctx context.Context, id int, user string) error {
	for _, r := range m.rows {
		if r.ID == id && !r.Deleted {
			r.Deleted = true
			r.LastUpdateUser = &user
			r.LastUpdateDate = time.Now()
			return nil
		}
	}
	return ErrNoSuchMerge
}

func TestMergeRoundTrip(t *testing.T) {
	repo := &mockMergeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.Merge(ctx, 1, 10, []int{11, 12}, "prov1"); err != nil {
		t.Fatalf("merge: %v", err)
	}

	children, err := svc.MergedChildren(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d merged children, want 2", len(children))
	}

	parent, err := svc.MergedInto(ctx, 1, 11)
	if err != nil {
		t.Fatal(err)
	}
	if parent == nil || parent.ParentID != 10 {
		t.Errorf("child 11 should report parent 10, got %+v", parent)
	}

	if err := svc.Unmerge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatalf("unmerge: %v", err)
	}
	children, _ = svc.MergedChildren(ctx, 1, 10)
	if len(children) != 1 || children[0].ChildID != 12 {
		t.Errorf("after unmerging 11, children = %+v", children)
	}
	// The unmerged row survives as history.
	if len(repo.rows) != 2 {
		t.Errorf("unmerge must soft-delete, repo holds %d rows", len(repo.rows))
	}
}

func TestUnmergeMissingPairFails(t *testing.T) {
	svc := NewService(&mockMergeRepo{})
	ctx := context.Background()

	err := svc.Unmerge(ctx, 1, 10, []int{11}, "prov1")
	if !errors.Is(err, ErrNoSuchMerge) {
		t.Fatalf("expected ErrNoSuchMerge, got %v", err)
	}

	// Double unmerge hits the same error.
	if err := svc.Merge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unmerge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unmerge(ctx, 1, 10, []int{11}, "prov1"); !errors.Is(err, ErrNoSuchMerge) {
		t.Fatalf("second unmerge should fail, got %v", err)
	}
}

func TestMergeRejectsSelf(t *testing.T) {
	svc := NewService(&mockMergeRepo{})

	err := svc.Merge(context.Background(), 1, 10, []int{10}, "prov1")
	if !errors.Is(err, ErrSelfMerge) {
		t.Fatalf("expected ErrSelfMerge, got %v", err)
	}
}

func TestMergeRejectsAlreadyMerged(t *testing.T) {
	svc := NewService(&mockMergeRepo{})
	ctx := context.Background()

	if err := svc.Merge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatal(err)
	}
	err := svc.Merge(ctx, 1, 20, []int{11}, "prov1")
	if !errors.Is(err, ErrAlreadyMerged) {
		t.Fatalf("expected ErrAlreadyMerged, got %v", err)
	}
}

func TestMergeRejectsChains(t *testing.T) {
	svc := NewService(&mockMergeRepo{})
	ctx := context.Background()

	if err := svc.Merge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatal(err)
	}

	// The parent is itself a child elsewhere.
	if err := svc.Merge(ctx, 1, 11, []int{12}, "prov1"); !errors.Is(err, ErrMergeChain) {
		t.Errorf("merging into a merged child should fail, got %v", err)
	}
	// The child carries its own children.
	if err := svc.Merge(ctx, 1, 20, []int{10}, "prov1"); !errors.Is(err, ErrMergeChain) {
		t.Errorf("merging a parent as a child should fail, got %v", err)
	}
}

func TestMergeEmptyChildListIsNoOp(t *testing.T) {
	repo := &mockMergeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.Merge(ctx, 1, 10, nil, "prov1"); err != nil {
		t.Fatalf("empty merge: %v", err)
	}
	if err := svc.Unmerge(ctx, 1, 10, nil, "prov1"); err != nil {
		t.Fatalf("empty unmerge: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Errorf("no rows should exist, got %d", len(repo.rows))
	}
}

func TestMergesAreFacilityScoped(t *testing.T) {
	svc := NewService(&mockMergeRepo{})
	ctx := context.Background()

	if err := svc.Merge(ctx, 1, 10, []int{11}, "prov1"); err != nil {
		t.Fatal(err)
	}
	// The same ids at a different facility are a different patient.
	if err := svc.Merge(ctx, 2, 20, []int{11}, "prov2"); err != nil {
		t.Fatalf("merge at another facility: %v", err)
	}

	parent, err := svc.MergedInto(ctx, 2, 11)
	if err != nil {
		t.Fatal(err)
	}
	if parent == nil || parent.ParentID != 20 {
		t.Errorf("facility 2's child 11 should report parent 20, got %+v", parent)
	}
}
