package linkage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockLinkRepo struct {
	links []*DemographicLink
}

func (m *mockLinkRepo) Create(ctx context.Context, l *DemographicLink) error {
	l.ID = uuid.New()
	l.Active = true
	m.links = append(m.links, l)
	return nil
}

func (m *mockLinkRepo) FindActivePair(ctx context.Context, a, b Node) ([]*DemographicLink, error) {
	var out []*DemographicLink
	for _, l := range m.links {
		if !l.Active {
			continue
		}
		if (l.LocalNode() == a && l.RemoteNode() == b) || (l.LocalNode() == b && l.RemoteNode() == a) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLinkRepo) ActiveByNode(ctx context.Context, n Node) ([]*DemographicLink, error) {
	var out []*DemographicLink
	for _, l := range m.links {
		if l.Active && (l.LocalNode() == n || l.RemoteNode() == n) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLinkRepo) Deactivate(ctx context.Context, l *DemographicLink) error {
	for _, cur := range m.links {
		if cur.ID == l.ID && cur.Active {
			cur.Active = false
			l.Active = false
			return nil
		}
	}
	return ErrNoActiveLink
}

func (m *mockLinkRepo) HistoryByNode(ctx context.Context, n Node) ([]*DemographicLink, error) {
	var out []*DemographicLink
	for _, l := range m.links {
		if l.LocalNode() == n || l.RemoteNode() == n {
			out = append(out, l)
		}
	}
	return out, nil
}

func node(f, d int) Node { return Node{FacilityID: f, DemographicID: d} }

func TestLinkIsIdempotent(t *testing.T) {
	repo := &mockLinkRepo{}
	svc := NewService(repo, 0)
	ctx := context.Background()

	first, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	second, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200))
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("relink created a new link: %s vs %s", first.ID, second.ID)
	}
	if len(repo.links) != 1 {
		t.Errorf("expected 1 stored link, got %d", len(repo.links))
	}

	// Reverse direction is the same pair.
	third, err := svc.Link(ctx, "prov2", node(2, 200), node(1, 100))
	if err != nil {
		t.Fatalf("reverse relink: %v", err)
	}
	if third.ID != first.ID {
		t.Errorf("reverse relink created a new link")
	}
}

func TestLinkRejectsSelfAndInvalid(t *testing.T) {
	svc := NewService(&mockLinkRepo{}, 0)
	ctx := context.Background()

	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(1, 100)); err == nil {
		t.Error("expected error linking a node to itself")
	}
	if _, err := svc.Link(ctx, "prov1", node(0, 100), node(2, 200)); err == nil {
		t.Error("expected error for missing facility id")
	}
	if _, err := svc.Link(ctx, "", node(1, 100), node(2, 200)); err == nil {
		t.Error("expected error for missing provider")
	}
}

func TestUnlinkMissingPairFails(t *testing.T) {
	svc := NewService(&mockLinkRepo{}, 0)

	err := svc.Unlink(context.Background(), node(1, 100), node(2, 200))
	if !errors.Is(err, ErrNoActiveLink) {
		t.Fatalf("expected ErrNoActiveLink, got %v", err)
	}
}

func TestUnlinkKeepsHistory(t *testing.T) {
	repo := &mockLinkRepo{}
	svc := NewService(repo, 0)
	ctx := context.Background()

	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200)); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.Unlink(ctx, node(1, 100), node(2, 200)); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	linked, err := svc.DirectLinks(ctx, node(1, 100))
	if err != nil {
		t.Fatalf("direct links: %v", err)
	}
	if len(linked) != 0 {
		t.Errorf("expected no active links after unlink, got %v", linked)
	}

	history, err := svc.History(ctx, node(1, 100))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Active {
		t.Errorf("expected one inactive history entry, got %+v", history)
	}

	// The pair can be linked again after unlinking.
	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200)); err != nil {
		t.Fatalf("relink after unlink: %v", err)
	}
}

func TestAllLinkedTransitiveClosure(t *testing.T) {
	repo := &mockLinkRepo{}
	svc := NewService(repo, 0)
	ctx := context.Background()

	// A(1,100) - B(2,200) - C(3,300); A and C are not directly linked.
	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Link(ctx, "prov1", node(2, 200), node(3, 300)); err != nil {
		t.Fatal(err)
	}

	direct, err := svc.DirectLinks(ctx, node(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(direct) != 1 || direct[0] != node(2, 200) {
		t.Errorf("direct links from A = %v, want just B", direct)
	}

	closure, err := svc.AllLinked(ctx, node(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	want := map[Node]bool{node(2, 200): true, node(3, 300): true}
	if len(closure) != 2 {
		t.Fatalf("closure from A = %v, want B and C", closure)
	}
	for _, n := range closure {
		if !want[n] {
			t.Errorf("unexpected node %v in closure", n)
		}
	}
}

func TestAllLinkedTerminatesOnCycle(t *testing.T) {
	repo := &mockLinkRepo{}
	svc := NewService(repo, 0)
	ctx := context.Background()

	// A - B - C - A forms a cycle.
	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Link(ctx, "prov1", node(2, 200), node(3, 300)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Link(ctx, "prov1", node(3, 300), node(1, 100)); err != nil {
		t.Fatal(err)
	}

	closure, err := svc.AllLinked(ctx, node(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(closure) != 2 {
		t.Fatalf("closure on cycle = %v, want exactly B and C", closure)
	}
	for _, n := range closure {
		if n == node(1, 100) {
			t.Error("origin must not appear in its own closure")
		}
	}
}

func TestAllLinkedHonorsMaxHops(t *testing.T) {
	repo := &mockLinkRepo{}
	svc := NewService(repo, 1)
	ctx := context.Background()

	if _, err := svc.Link(ctx, "prov1", node(1, 100), node(2, 200)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Link(ctx, "prov1", node(2, 200), node(3, 300)); err != nil {
		t.Fatal(err)
	}

	closure, err := svc.AllLinked(ctx, node(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(closure) != 1 || closure[0] != node(2, 200) {
		t.Errorf("with 1 hop, closure = %v, want just B", closure)
	}
}
