package demographic

import (
	"context"
	"strings"
	"testing"
	"time"
)

type demoKey struct{ f, d int }

type mockDemoRepo struct {
	demos     map[demoKey]*Demographic
	pushDates map[demoKey]time.Time
}

func newMockDemoRepo() *mockDemoRepo {
	return &mockDemoRepo{
		demos:     map[demoKey]*Demographic{},
		pushDates: map[demoKey]time.Time{},
	}
}

func (m *mockDemoRepo) Upsert(ctx context.Context, d *Demographic) error {
	k := demoKey{d.FacilityID, d.DemographicID}
	m.demos[k] = d
	m.pushDates[k] = time.Now()
	return nil
}

func (m *mockDemoRepo) GetByKey(ctx context.Context, facilityID, demographicID int) (*Demographic, error) {
	d, ok := m.demos[demoKey{facilityID, demographicID}]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDemoRepo) FindExact(ctx context.Context, p *MatchParameters, limit int) ([]*Demographic, error) {
	var out []*Demographic
	for _, d := range m.demos {
		if p.HIN != "" && (d.HIN == nil || !strings.EqualFold(p.HIN, *d.HIN)) {
			continue
		}
		if p.FirstName != "" && !strings.EqualFold(p.FirstName, d.FirstName) {
			continue
		}
		if p.LastName != "" && !strings.EqualFold(p.LastName, d.LastName) {
			continue
		}
		if p.Gender != "" && p.Gender != d.Gender {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockDemoRepo) FindByLastNameAndDOB(ctx context.Context, lastName string, year, month, day *int) ([]*Demographic, error) {
	var out []*Demographic
	for _, d := range m.demos {
		if !strings.EqualFold(lastName, d.LastName) {
			continue
		}
		if d.BirthDate != nil {
			if year != nil && d.BirthDate.Year() != *year {
				continue
			}
			if month != nil && int(d.BirthDate.Month()) != *month {
				continue
			}
			if day != nil && d.BirthDate.Day() != *day {
				continue
			}
		} else if year != nil || month != nil || day != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDemoRepo) PushedAfter(ctx context.Context, t time.Time) ([]*Demographic, error) {
	var out []*Demographic
	for k, pushed := range m.pushDates {
		if pushed.After(t) {
			out = append(out, m.demos[k])
		}
	}
	return out, nil
}

type mockLinks struct {
	// adjacency over (facility, demographic) pairs
	edges map[demoKey][]demoKey
}

func (m *mockLinks) DirectLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error) {
	var out []LinkedNode
	for _, n := range m.edges[demoKey{facilityID, demographicID}] {
		out = append(out, LinkedNode{FacilityID: n.f, DemographicID: n.d})
	}
	return out, nil
}

func (m *mockLinks) AllLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error) {
	start := demoKey{facilityID, demographicID}
	visited := map[demoKey]bool{start: true}
	frontier := []demoKey{start}
	var out []LinkedNode
	for len(frontier) > 0 {
		var next []demoKey
		for _, cur := range frontier {
			for _, n := range m.edges[cur] {
				if visited[n] {
					continue
				}
				visited[n] = true
				out = append(out, LinkedNode{FacilityID: n.f, DemographicID: n.d})
				next = append(next, n)
			}
		}
		frontier = next
	}
	return out, nil
}

type mockConsent struct {
	// allowed[owner] lists requesters allowed to read the owner's data.
	allowed map[demoKey][]int
}

func (m *mockConsent) HasConsent(ctx context.Context, facilityID, demographicID, requestingFacilityID int) (bool, error) {
	for _, f := range m.allowed[demoKey{facilityID, demographicID}] {
		if f == requestingFacilityID {
			return true, nil
		}
	}
	return false, nil
}

func seed(repo *mockDemoRepo, facilityID, demographicID int, first, last string) *Demographic {
	d := &Demographic{
		FacilityID:    facilityID,
		DemographicID: demographicID,
		FirstName:     first,
		LastName:      last,
		Gender:        GenderFemale,
	}
	repo.demos[demoKey{facilityID, demographicID}] = d
	repo.pushDates[demoKey{facilityID, demographicID}] = time.Now()
	return d
}

func TestFindExactMatchAmbiguityReturnsNothing(t *testing.T) {
	repo := newMockDemoRepo()
	seed(repo, 1, 100, "Jane", "Doe")
	seed(repo, 2, 200, "Jane", "Doe")
	svc := NewService(repo, &mockLinks{}, &mockConsent{})

	d, err := svc.FindExactMatch(context.Background(), &MatchParameters{FirstName: "Jane", LastName: "Doe"})
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Errorf("two candidates must yield no match, got %+v", d)
	}
}

func TestFindExactMatchSingle(t *testing.T) {
	repo := newMockDemoRepo()
	want := seed(repo, 1, 100, "Jane", "Doe")
	seed(repo, 2, 200, "John", "Smith")
	svc := NewService(repo, &mockLinks{}, &mockConsent{})

	d, err := svc.FindExactMatch(context.Background(), &MatchParameters{FirstName: "Jane", LastName: "Doe"})
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.DemographicID != want.DemographicID {
		t.Errorf("got %+v, want demographic %d", d, want.DemographicID)
	}
}

func TestFindExactMatchEmptySearchRejected(t *testing.T) {
	svc := NewService(newMockDemoRepo(), &mockLinks{}, &mockConsent{})

	if _, err := svc.FindExactMatch(context.Background(), &MatchParameters{}); err != ErrEmptySearch {
		t.Errorf("expected ErrEmptySearch, got %v", err)
	}
}

func TestGetMatchingScoresAndSorts(t *testing.T) {
	repo := newMockDemoRepo()
	bd := time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC)
	hin := "9876543210"

	strong := seed(repo, 1, 100, "Jane", "Doe")
	strong.BirthDate = &bd
	strong.HIN = &hin
	weak := seed(repo, 2, 200, "Janet", "Doe")

	svc := NewService(repo, &mockLinks{}, &mockConsent{})

	scores, err := svc.GetMatching(context.Background(), &MatchParameters{
		FirstName: "Jane",
		LastName:  "Doe",
		HIN:       "9876543210",
		BirthYear: "1980", BirthMonth: "3", BirthDay: "15",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d candidates, want 2", len(scores))
	}
	if scores[0].Demographic.DemographicID != strong.DemographicID {
		t.Errorf("best match should come first, got %d", scores[0].Demographic.DemographicID)
	}
	// HIN(4) + last(2) + first(2) + birth date(2)
	if scores[0].Score != 10 {
		t.Errorf("strong score = %d, want 10", scores[0].Score)
	}
	// last name only
	if scores[1].Score != 2 {
		t.Errorf("weak score = %d, want 2", scores[1].Score)
	}
	_ = weak
}

func TestGetMatchingUnparsableDOBWidensSearch(t *testing.T) {
	repo := newMockDemoRepo()
	bd := time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC)
	d := seed(repo, 1, 100, "Jane", "Doe")
	d.BirthDate = &bd

	svc := NewService(repo, &mockLinks{}, &mockConsent{})

	// Garbage year would exclude everyone if applied as a predicate.
	scores, err := svc.GetMatching(context.Background(), &MatchParameters{
		LastName:  "Doe",
		BirthYear: "19eighty",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 {
		t.Fatalf("unparsable date must not constrain the search, got %d candidates", len(scores))
	}
}

func TestGetMatchingRequiresLastName(t *testing.T) {
	svc := NewService(newMockDemoRepo(), &mockLinks{}, &mockConsent{})

	if _, err := svc.GetMatching(context.Background(), &MatchParameters{FirstName: "Jane"}); err != ErrLastNameRequired {
		t.Errorf("expected ErrLastNameRequired, got %v", err)
	}
}

func TestGetLinkedDemographicsConsentFilter(t *testing.T) {
	repo := newMockDemoRepo()
	seed(repo, 2, 200, "Jane", "Doe")
	seed(repo, 3, 300, "Jane", "Doe")

	links := &mockLinks{edges: map[demoKey][]demoKey{
		{1, 100}: {{2, 200}, {3, 300}},
		{2, 200}: {{1, 100}},
		{3, 300}: {{1, 100}},
	}}
	// Only facility 2's copy is consented to facility 1.
	consents := &mockConsent{allowed: map[demoKey][]int{
		{2, 200}: {1},
	}}
	svc := NewService(repo, links, consents)

	out, err := svc.GetLinkedDemographics(context.Background(), 1, 100, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d linked demographics, want 1 (consent must filter)", len(out))
	}
	if out[0].FacilityID != 2 {
		t.Errorf("got facility %d, want 2", out[0].FacilityID)
	}
}

func TestIDsPushedAfterForFacility(t *testing.T) {
	repo := newMockDemoRepo()
	// Local patient at the requesting facility (1) and a linked remote at 2.
	seed(repo, 1, 100, "Jane", "Doe")
	seed(repo, 2, 200, "Jane", "Doe")
	// Remote with no link back to facility 1.
	seed(repo, 3, 300, "Bob", "Ray")

	links := &mockLinks{edges: map[demoKey][]demoKey{
		{1, 100}: {{2, 200}},
		{2, 200}: {{1, 100}},
	}}
	consents := &mockConsent{allowed: map[demoKey][]int{
		{2, 200}: {1},
	}}
	svc := NewService(repo, links, consents)

	ids, err := svc.IDsPushedAfterForFacility(context.Background(), 1, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	// 100 appears once: both its own push and the linked remote push map to it.
	if len(ids) != 1 || ids[0] != 100 {
		t.Errorf("ids = %v, want [100]", ids)
	}
}

func TestSetDemographicStampsCallerFacility(t *testing.T) {
	repo := newMockDemoRepo()
	svc := NewService(repo, &mockLinks{}, &mockConsent{})

	d := &Demographic{FacilityID: 99, DemographicID: 5, FirstName: "Jane", LastName: "Doe"}
	if err := svc.SetDemographic(context.Background(), 1, d); err != nil {
		t.Fatal(err)
	}
	if d.FacilityID != 1 {
		t.Errorf("facility id = %d, want the caller's facility 1", d.FacilityID)
	}
	if _, ok := repo.demos[demoKey{1, 5}]; !ok {
		t.Error("demographic not stored under the caller's facility")
	}
	if d.Gender != GenderUndefined {
		t.Errorf("empty gender should default to U, got %q", d.Gender)
	}
}
