package records

import (
	"context"
	"errors"
	"testing"
)

type recKey struct{ f, id int }

type mockDrugRepo struct {
	drugs map[recKey]*Drug
}

func (m *mockDrugRepo) Upsert(ctx context.Context, d *Drug) error {
	if m.drugs == nil {
		m.drugs = map[recKey]*Drug{}
	}
	m.drugs[recKey{d.FacilityID, d.DrugID}] = d
	return nil
}

func (m *mockDrugRepo) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Drug, error) {
	var out []*Drug
	for _, d := range m.drugs {
		if d.FacilityID == facilityID && d.DemographicID == demographicID {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockPreventionRepo struct {
	preventions map[recKey]*Prevention
}

func (m *mockPreventionRepo) Upsert(ctx context.Context, p *Prevention) error {
	if m.preventions == nil {
		m.preventions = map[recKey]*Prevention{}
	}
	m.preventions[recKey{p.FacilityID, p.PreventionID}] = p
	return nil
}

func (m *mockPreventionRepo) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Prevention, error) {
	var out []*Prevention
	for _, p := range m.preventions {
		if p.FacilityID == facilityID && p.DemographicID == demographicID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPreventionRepo) GetByKey(ctx context.Context, facilityID, preventionID int) (*Prevention, error) {
	p, ok := m.preventions[recKey{facilityID, preventionID}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return p, nil
}

func (m *mockPreventionRepo) DeleteByIDs(ctx context.Context, facilityID int, preventionIDs []int) error {
	for _, id := range preventionIDs {
		delete(m.preventions, recKey{facilityID, id})
	}
	return nil
}

type mockDocumentRepo struct {
	docs     map[recKey]*Document
	contents map[recKey][]byte
}

func (m *mockDocumentRepo) Upsert(ctx context.Context, d *Document) error {
	if m.docs == nil {
		m.docs = map[recKey]*Document{}
	}
	m.docs[recKey{d.FacilityID, d.DocumentID}] = d
	return nil
}

func (m *mockDocumentRepo) GetByKey(ctx context.Context, facilityID, documentID int) (*Document, error) {
	d, ok := m.docs[recKey{facilityID, documentID}]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockDocumentRepo) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Document, error) {
	var out []*Document
	for _, d := range m.docs {
		if d.FacilityID == facilityID && d.DemographicID == demographicID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) DeleteByIDs(ctx context.Context, facilityID int, documentIDs []int) error {
	for _, id := range documentIDs {
		delete(m.docs, recKey{facilityID, id})
		delete(m.contents, recKey{facilityID, id})
	}
	return nil
}

func (m *mockDocumentRepo) SetContents(ctx context.Context, facilityID, documentID int, contents []byte) error {
	if m.contents == nil {
		m.contents = map[recKey][]byte{}
	}
	m.contents[recKey{facilityID, documentID}] = contents
	return nil
}

func (m *mockDocumentRepo) GetContents(ctx context.Context, facilityID, documentID int) ([]byte, error) {
	c, ok := m.contents[recKey{facilityID, documentID}]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return c, nil
}

type mockNoteRepo struct {
	notes map[string]*Note
}

func (m *mockNoteRepo) Upsert(ctx context.Context, n *Note) error {
	if m.notes == nil {
		m.notes = map[string]*Note{}
	}
	m.notes[n.NoteUUID] = n
	return nil
}

func (m *mockNoteRepo) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Note, error) {
	var out []*Note
	for _, n := range m.notes {
		if n.FacilityID == facilityID && n.DemographicID == demographicID {
			out = append(out, n)
		}
	}
	return out, nil
}

type staticLinks struct {
	nodes []LinkedNode
}

func (s *staticLinks) AllLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error) {
	return s.nodes, nil
}

type allowList struct {
	allowed map[recKey][]int
}

func (a *allowList) HasConsent(ctx context.Context, facilityID, demographicID, requestingFacilityID int) (bool, error) {
	for _, f := range a.allowed[recKey{facilityID, demographicID}] {
		if f == requestingFacilityID {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(drugs *mockDrugRepo, prev *mockPreventionRepo, docs *mockDocumentRepo, links LinkResolver, consents ConsentChecker) *Service {
	if links == nil {
		links = &staticLinks{}
	}
	if consents == nil {
		consents = &allowList{}
	}
	return NewService(Repos{
		Drugs:       drugs,
		Preventions: prev,
		Documents:   docs,
	}, links, consents)
}

func TestSetDrugsPartialBatch(t *testing.T) {
	repo := &mockDrugRepo{}
	svc := newTestService(repo, nil, nil, nil, nil)
	brand := "Amoxil"

	res, err := svc.SetDrugs(context.Background(), 1, []*Drug{
		{DrugID: 1, DemographicID: 100, BrandName: &brand, Dosage: "500mg"},
		{DrugID: 2, DemographicID: 100, BrandName: &brand}, // missing dosage
		{DrugID: 3, DemographicID: 100, BrandName: &brand, Dosage: "250mg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stored != 2 {
		t.Errorf("stored = %d, want 2", res.Stored)
	}
	if len(res.Failed) != 1 || res.Failed[0].Index != 1 {
		t.Fatalf("failed = %+v, want only index 1", res.Failed)
	}
	if res.Failed[0].RecordID != "2" {
		t.Errorf("rejected item must carry its record id, got %q", res.Failed[0].RecordID)
	}
	if len(repo.drugs) != 2 {
		t.Errorf("repo holds %d drugs, want 2", len(repo.drugs))
	}
}

func TestSetDrugsRePushOverwrites(t *testing.T) {
	repo := &mockDrugRepo{}
	svc := newTestService(repo, nil, nil, nil, nil)
	brand := "Amoxil"
	ctx := context.Background()

	first := []*Drug{{DrugID: 1, DemographicID: 100, BrandName: &brand, Dosage: "500mg"}}
	if _, err := svc.SetDrugs(ctx, 1, first); err != nil {
		t.Fatal(err)
	}
	second := []*Drug{{DrugID: 1, DemographicID: 100, BrandName: &brand, Dosage: "250mg"}}
	if _, err := svc.SetDrugs(ctx, 1, second); err != nil {
		t.Fatal(err)
	}

	if len(repo.drugs) != 1 {
		t.Fatalf("re-push must not duplicate, repo holds %d", len(repo.drugs))
	}
	if repo.drugs[recKey{1, 1}].Dosage != "250mg" {
		t.Error("re-push must replace the stored record")
	}
}

func TestSetDrugsStampsCallerFacility(t *testing.T) {
	repo := &mockDrugRepo{}
	svc := newTestService(repo, nil, nil, nil, nil)
	brand := "Amoxil"

	_, err := svc.SetDrugs(context.Background(), 7, []*Drug{
		{FacilityID: 3, DrugID: 1, DemographicID: 100, BrandName: &brand, Dosage: "500mg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.drugs[recKey{7, 1}]; !ok {
		t.Error("payload facility id must be overridden by the caller's facility")
	}
}

func TestLinkedDrugsConsentGate(t *testing.T) {
	repo := &mockDrugRepo{}
	brand := "Amoxil"
	ctx := context.Background()

	// Facility 1's own record, a consented remote at 2, an unconsented at 3.
	repo.Upsert(ctx, &Drug{FacilityID: 1, DrugID: 1, DemographicID: 100, BrandName: &brand, Dosage: "1"})
	repo.Upsert(ctx, &Drug{FacilityID: 2, DrugID: 1, DemographicID: 200, BrandName: &brand, Dosage: "2"})
	repo.Upsert(ctx, &Drug{FacilityID: 3, DrugID: 1, DemographicID: 300, BrandName: &brand, Dosage: "3"})

	links := &staticLinks{nodes: []LinkedNode{
		{FacilityID: 2, DemographicID: 200},
		{FacilityID: 3, DemographicID: 300},
	}}
	consents := &allowList{allowed: map[recKey][]int{
		{2, 200}: {1},
	}}
	svc := newTestService(repo, nil, nil, links, consents)

	out, err := svc.LinkedDrugs(ctx, 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d drugs, want own + consented remote", len(out))
	}
	for _, d := range out {
		if d.FacilityID == 3 {
			t.Error("unconsented facility 3 data leaked into the result")
		}
	}
}

func TestDeletePreventionsByID(t *testing.T) {
	repo := &mockPreventionRepo{}
	svc := newTestService(nil, repo, nil, nil, nil)
	ctx := context.Background()

	repo.Upsert(ctx, &Prevention{FacilityID: 1, PreventionID: 1, DemographicID: 100, PreventionType: "Flu"})
	repo.Upsert(ctx, &Prevention{FacilityID: 1, PreventionID: 2, DemographicID: 100, PreventionType: "Td"})

	// Id 99 was never pushed; deleting it must not fail.
	if err := svc.DeletePreventions(ctx, 1, []int{1, 99}); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.DeletePreventions(ctx, 1, []int{1}); err != nil {
		t.Fatalf("re-sent delete must be a no-op, got %v", err)
	}
	if _, ok := repo.preventions[recKey{1, 1}]; ok {
		t.Error("prevention 1 not removed")
	}
	if _, ok := repo.preventions[recKey{1, 2}]; !ok {
		t.Error("unlisted prevention 2 must survive the delete")
	}

	// An empty list deletes nothing.
	if err := svc.DeletePreventions(ctx, 1, nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
	if len(repo.preventions) != 1 {
		t.Errorf("repo holds %d preventions, want 1", len(repo.preventions))
	}
}

func TestDeleteDocumentsRemovesContents(t *testing.T) {
	repo := &mockDocumentRepo{}
	svc := newTestService(nil, nil, repo, nil, nil)
	ctx := context.Background()

	repo.Upsert(ctx, &Document{FacilityID: 1, DocumentID: 42, DemographicID: 100, Description: "referral"})
	repo.SetContents(ctx, 1, 42, []byte("pdf"))

	if err := svc.DeleteDocuments(ctx, 1, []int{42}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByKey(ctx, 1, 42); !errors.Is(err, ErrDocumentNotFound) {
		t.Error("document metadata not removed")
	}
	if _, err := repo.GetContents(ctx, 1, 42); !errors.Is(err, ErrDocumentNotFound) {
		t.Error("document contents must go with the metadata")
	}
}

func TestGetPreventionConsentGate(t *testing.T) {
	repo := &mockPreventionRepo{}
	ctx := context.Background()
	repo.Upsert(ctx, &Prevention{FacilityID: 2, PreventionID: 7, DemographicID: 200, PreventionType: "Flu"})

	consents := &allowList{allowed: map[recKey][]int{}}
	svc := newTestService(nil, repo, nil, nil, consents)

	// The owner always sees its own record.
	if _, err := svc.GetPrevention(ctx, 2, 2, 7); err != nil {
		t.Fatalf("owner fetch: %v", err)
	}

	// A foreign facility without consent gets the not-found sentinel, so a
	// withheld record looks the same as an absent one.
	if _, err := svc.GetPrevention(ctx, 1, 2, 7); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("unconsented fetch must be denied as not found, got %v", err)
	}
	if _, err := svc.GetPrevention(ctx, 1, 2, 999); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("absent record must be not found, got %v", err)
	}

	consents.allowed[recKey{2, 200}] = []int{1}
	got, err := svc.GetPrevention(ctx, 1, 2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.PreventionType != "Flu" {
		t.Errorf("prevention type = %q", got.PreventionType)
	}
}

func TestDocumentContentsRequireMetadata(t *testing.T) {
	repo := &mockDocumentRepo{}
	svc := newTestService(nil, nil, repo, nil, nil)
	ctx := context.Background()

	err := svc.SetDocumentContents(ctx, 1, 42, []byte("pdf"))
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("contents without metadata must fail, got %v", err)
	}

	repo.Upsert(ctx, &Document{FacilityID: 1, DocumentID: 42, DemographicID: 100, Description: "referral"})
	if err := svc.SetDocumentContents(ctx, 1, 42, []byte("pdf")); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetDocumentContents(ctx, 1, 1, 42)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pdf" {
		t.Errorf("contents = %q", got)
	}
}

func TestGetDocumentContentsConsentGate(t *testing.T) {
	repo := &mockDocumentRepo{}
	ctx := context.Background()
	repo.Upsert(ctx, &Document{FacilityID: 2, DocumentID: 42, DemographicID: 200, Description: "referral"})
	repo.SetContents(ctx, 2, 42, []byte("pdf"))

	consents := &allowList{allowed: map[recKey][]int{}}
	svc := newTestService(nil, nil, repo, nil, consents)

	if _, err := svc.GetDocumentContents(ctx, 1, 2, 42); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("unconsented cross-facility read must be denied, got %v", err)
	}

	consents.allowed[recKey{2, 200}] = []int{1}
	got, err := svc.GetDocumentContents(ctx, 1, 2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pdf" {
		t.Errorf("contents = %q", got)
	}
}

func TestLinkedNoteMetadataStripsBodies(t *testing.T) {
	repo := &mockNoteRepo{}
	ctx := context.Background()
	repo.Upsert(ctx, &Note{
		FacilityID:    1,
		NoteUUID:      "7f9c24e5-2f8a-4b9d-9c3e-1a2b3c4d5e6f",
		DemographicID: 100,
		Note:          "long encounter narrative",
	})
	svc := NewService(Repos{Notes: repo}, &staticLinks{}, &allowList{})

	meta, err := svc.LinkedNoteMetadata(ctx, 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta) != 1 {
		t.Fatalf("got %d notes, want 1", len(meta))
	}
	if meta[0].Note != "" {
		t.Error("metadata listing must not carry the note body")
	}
	// The stored note keeps its body.
	if repo.notes["7f9c24e5-2f8a-4b9d-9c3e-1a2b3c4d5e6f"].Note == "" {
		t.Error("stripping metadata must not mutate the stored note")
	}
}

func TestNoteValidationRequiresUUID(t *testing.T) {
	n := &Note{NoteUUID: "not-a-uuid", DemographicID: 100, Note: "text"}
	if err := n.Validate(); err == nil {
		t.Error("expected error for invalid note uuid")
	}
	n.NoteUUID = "7f9c24e5-2f8a-4b9d-9c3e-1a2b3c4d5e6f"
	if err := n.Validate(); err != nil {
		t.Errorf("valid note rejected: %v", err)
	}
}
