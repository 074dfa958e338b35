package facility

import (
	"context"
	"testing"
	"time"
)

type mockFacilityRepo struct {
	facilities map[int]*Facility
	nextID     int
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{facilities: map[int]*Facility{}}
}

func (m *mockFacilityRepo) Create(ctx context.Context, f *Facility) error {
	m.nextID++
	f.ID = m.nextID
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	m.facilities[f.ID] = f
	return nil
}

func (m *mockFacilityRepo) GetByID(ctx context.Context, id int) (*Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

func (m *mockFacilityRepo) Update(ctx context.Context, f *Facility) error {
	if _, ok := m.facilities[f.ID]; !ok {
		return ErrNotFound
	}
	f.UpdatedAt = time.Now()
	m.facilities[f.ID] = f
	return nil
}

func (m *mockFacilityRepo) List(ctx context.Context, enabledOnly bool, limit, offset int) ([]*Facility, int, error) {
	var out []*Facility
	for _, f := range m.facilities {
		if enabledOnly && !f.Enabled {
			continue
		}
		out = append(out, f)
	}
	return out, len(out), nil
}

func (m *mockFacilityRepo) TouchLastConnected(ctx context.Context, id int) error {
	f, ok := m.facilities[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	f.LastConnected = &now
	return nil
}

func (m *mockFacilityRepo) SetLastPushDate(ctx context.Context, id int) error {
	f, ok := m.facilities[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	f.LastPushDate = &now
	return nil
}

func TestRegisterRequiresName(t *testing.T) {
	svc := NewService(newMockFacilityRepo())

	if err := svc.Register(context.Background(), &Facility{}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.Register(context.Background(), &Facility{Name: "North Clinic", Enabled: true}); err != nil {
		t.Errorf("valid facility rejected: %v", err)
	}
}

func TestListEnabledOnly(t *testing.T) {
	repo := newMockFacilityRepo()
	svc := NewService(repo)
	ctx := context.Background()

	svc.Register(ctx, &Facility{Name: "North Clinic", Enabled: true})
	svc.Register(ctx, &Facility{Name: "Closed Clinic", Enabled: false})

	all, total, err := svc.List(ctx, false, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("all facilities: got %d/%d, want 2", len(all), total)
	}

	enabled, total, err := svc.List(ctx, true, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || enabled[0].Name != "North Clinic" {
		t.Errorf("enabled facilities: got %d, %v", total, enabled)
	}
}

func TestPushCheckpointLifecycle(t *testing.T) {
	repo := newMockFacilityRepo()
	svc := NewService(repo)
	ctx := context.Background()

	f := &Facility{Name: "North Clinic", Enabled: true}
	if err := svc.Register(ctx, f); err != nil {
		t.Fatal(err)
	}
	if f.LastPushDate != nil {
		t.Fatal("new facility should have no push checkpoint")
	}

	if err := svc.SetLastPushDate(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastPushDate == nil {
		t.Error("push checkpoint not recorded")
	}

	if err := svc.SetLastPushDate(ctx, 0); err == nil {
		t.Error("expected error for missing facility id")
	}
}

func TestTouchLastConnected(t *testing.T) {
	repo := newMockFacilityRepo()
	svc := NewService(repo)
	ctx := context.Background()

	f := &Facility{Name: "North Clinic", Enabled: true}
	if err := svc.Register(ctx, f); err != nil {
		t.Fatal(err)
	}
	if err := svc.TouchLastConnected(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(ctx, f.ID)
	if got.LastConnected == nil {
		t.Error("last connected not stamped")
	}
}
