package records

import (
	"context"
)

// LinkedNode identifies a demographic at a facility, resolved through the
// link graph.
type LinkedNode struct {
	FacilityID    int `json:"facility_id"`
	DemographicID int `json:"demographic_id"`
}

// LinkResolver walks the link graph for a demographic. Implemented by the
// linkage service, adapted in main.
type LinkResolver interface {
	AllLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error)
}

// ConsentChecker decides whether a requesting facility may see a
// demographic's data. Implemented by the consent service, adapted in main.
type ConsentChecker interface {
	HasConsent(ctx context.Context, facilityID, demographicID, requestingFacilityID int) (bool, error)
}

// Repos bundles the per-type repositories so wiring stays in one place.
type Repos struct {
	Allergies    AllergyRepository
	Drugs        DrugRepository
	Notes        NoteRepository
	LabResults   LabResultRepository
	Preventions  PreventionRepository
	Documents    DocumentRepository
	Appointments AppointmentRepository
	Forms        FormRepository
	Admissions   AdmissionRepository
	Measurements MeasurementRepository
	BillingItems BillingItemRepository
	EformData    EformDataRepository
	EformValues  EformValueRepository
	Issues       IssueRepository
}

type Service struct {
	repos    Repos
	links    LinkResolver
	consents ConsentChecker
}

func NewService(repos Repos, links LinkResolver, consents ConsentChecker) *Service {
	return &Service{repos: repos, links: links, consents: consents}
}

// visibleNodes resolves the identities whose records the requester may read
// for one of its own patients. The patient's own node is always included;
// every linked remote node must pass the consent gate.
func (s *Service) visibleNodes(ctx context.Context, requestingFacilityID, demographicID int) ([]LinkedNode, error) {
	nodes := []LinkedNode{{FacilityID: requestingFacilityID, DemographicID: demographicID}}

	linked, err := s.links.AllLinked(ctx, requestingFacilityID, demographicID)
	if err != nil {
		return nil, err
	}
	for _, n := range linked {
		allowed, err := s.consents.HasConsent(ctx, n.FacilityID, n.DemographicID, requestingFacilityID)
		if err != nil {
			return nil, err
		}
		if allowed {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// listLinked gathers one record type across every visible identity.
func listLinked[T any](ctx context.Context, s *Service, requestingFacilityID, demographicID int,
	list func(context.Context, int, int) ([]T, error)) ([]T, error) {
	nodes, err := s.visibleNodes(ctx, requestingFacilityID, demographicID)
	if err != nil {
		return nil, err
	}

	var out []T
	for _, n := range nodes {
		items, err := list(ctx, n.FacilityID, n.DemographicID)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// getRecord fetches a single record by its composite key. Foreign-facility
// fetches must pass the consent gate; a denial surfaces as ErrRecordNotFound
// so a caller cannot tell a withheld record from an absent one.
func getRecord[T any](ctx context.Context, s *Service, requestingFacilityID, ownerFacilityID, recordID int,
	get func(context.Context, int, int) (*T, error), demographicID func(*T) int) (*T, error) {
	rec, err := get(ctx, ownerFacilityID, recordID)
	if err != nil {
		return nil, err
	}
	if ownerFacilityID != requestingFacilityID {
		allowed, err := s.consents.HasConsent(ctx, ownerFacilityID, demographicID(rec), requestingFacilityID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrRecordNotFound
		}
	}
	return rec, nil
}

func (s *Service) SetAllergies(ctx context.Context, facilityID int, items []*Allergy) (*BatchResult, error) {
	return storeBatch(ctx, items, func(a *Allergy) { a.FacilityID = facilityID }, s.repos.Allergies.Upsert)
}

func (s *Service) LinkedAllergies(ctx context.Context, facilityID, demographicID int) ([]*Allergy, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Allergies.ListByDemographic)
}

func (s *Service) SetDrugs(ctx context.Context, facilityID int, items []*Drug) (*BatchResult, error) {
	return storeBatch(ctx, items, func(d *Drug) { d.FacilityID = facilityID }, s.repos.Drugs.Upsert)
}

func (s *Service) LinkedDrugs(ctx context.Context, facilityID, demographicID int) ([]*Drug, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Drugs.ListByDemographic)
}

func (s *Service) SetNotes(ctx context.Context, facilityID int, items []*Note) (*BatchResult, error) {
	return storeBatch(ctx, items, func(n *Note) { n.FacilityID = facilityID }, s.repos.Notes.Upsert)
}

func (s *Service) LinkedNotes(ctx context.Context, facilityID, demographicID int) ([]*Note, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Notes.ListByDemographic)
}

// LinkedNoteMetadata lists linked notes with the note bodies stripped, for
// clients that render a note index before fetching full text.
func (s *Service) LinkedNoteMetadata(ctx context.Context, facilityID, demographicID int) ([]*Note, error) {
	notes, err := s.LinkedNotes(ctx, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		meta := *n
		meta.Note = ""
		out = append(out, &meta)
	}
	return out, nil
}

func (s *Service) SetLabResults(ctx context.Context, facilityID int, items []*LabResult) (*BatchResult, error) {
	return storeBatch(ctx, items, func(l *LabResult) { l.FacilityID = facilityID }, s.repos.LabResults.Upsert)
}

func (s *Service) LinkedLabResults(ctx context.Context, facilityID, demographicID int) ([]*LabResult, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.LabResults.ListByDemographic)
}

// GetLabResult fetches one cached lab result by its composite key,
// consent-gated when it belongs to another facility.
func (s *Service) GetLabResult(ctx context.Context, requestingFacilityID, ownerFacilityID, labResultID int) (*LabResult, error) {
	return getRecord(ctx, s, requestingFacilityID, ownerFacilityID, labResultID,
		s.repos.LabResults.GetByKey, func(l *LabResult) int { return l.DemographicID })
}

func (s *Service) SetPreventions(ctx context.Context, facilityID int, items []*Prevention) (*BatchResult, error) {
	return storeBatch(ctx, items, func(p *Prevention) { p.FacilityID = facilityID }, s.repos.Preventions.Upsert)
}

func (s *Service) LinkedPreventions(ctx context.Context, facilityID, demographicID int) ([]*Prevention, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Preventions.ListByDemographic)
}

// DeletePreventions removes the listed cached preventions ahead of a re-push.
// Ids with no cached row are ignored, so repeated deletes are safe.
func (s *Service) DeletePreventions(ctx context.Context, facilityID int, preventionIDs []int) error {
	return s.repos.Preventions.DeleteByIDs(ctx, facilityID, preventionIDs)
}

// GetPrevention fetches one cached prevention by its composite key,
// consent-gated when it belongs to another facility.
func (s *Service) GetPrevention(ctx context.Context, requestingFacilityID, ownerFacilityID, preventionID int) (*Prevention, error) {
	return getRecord(ctx, s, requestingFacilityID, ownerFacilityID, preventionID,
		s.repos.Preventions.GetByKey, func(p *Prevention) int { return p.DemographicID })
}

func (s *Service) SetDocuments(ctx context.Context, facilityID int, items []*Document) (*BatchResult, error) {
	return storeBatch(ctx, items, func(d *Document) { d.FacilityID = facilityID }, s.repos.Documents.Upsert)
}

func (s *Service) LinkedDocuments(ctx context.Context, facilityID, demographicID int) ([]*Document, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Documents.ListByDemographic)
}

// DeleteDocuments removes the listed cached documents, contents included.
// Ids with no cached row are ignored, so repeated deletes are safe.
func (s *Service) DeleteDocuments(ctx context.Context, facilityID int, documentIDs []int) error {
	return s.repos.Documents.DeleteByIDs(ctx, facilityID, documentIDs)
}

// GetDocument fetches one cached document's metadata by its composite key,
// consent-gated when it belongs to another facility.
func (s *Service) GetDocument(ctx context.Context, requestingFacilityID, ownerFacilityID, documentID int) (*Document, error) {
	return getRecord(ctx, s, requestingFacilityID, ownerFacilityID, documentID,
		s.repos.Documents.GetByKey, func(d *Document) int { return d.DemographicID })
}

// SetDocumentContents stores the binary payload for one of the caller's
// cached documents. The metadata row must already exist.
func (s *Service) SetDocumentContents(ctx context.Context, facilityID, documentID int, contents []byte) error {
	if _, err := s.repos.Documents.GetByKey(ctx, facilityID, documentID); err != nil {
		return err
	}
	return s.repos.Documents.SetContents(ctx, facilityID, documentID, contents)
}

// GetDocumentContents fetches a document's binary payload, consent-gated
// when the document belongs to another facility.
func (s *Service) GetDocumentContents(ctx context.Context, requestingFacilityID, ownerFacilityID, documentID int) ([]byte, error) {
	doc, err := s.repos.Documents.GetByKey(ctx, ownerFacilityID, documentID)
	if err != nil {
		return nil, err
	}
	if ownerFacilityID != requestingFacilityID {
		allowed, err := s.consents.HasConsent(ctx, ownerFacilityID, doc.DemographicID, requestingFacilityID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrDocumentNotFound
		}
	}
	return s.repos.Documents.GetContents(ctx, ownerFacilityID, documentID)
}

func (s *Service) SetAppointments(ctx context.Context, facilityID int, items []*Appointment) (*BatchResult, error) {
	return storeBatch(ctx, items, func(a *Appointment) { a.FacilityID = facilityID }, s.repos.Appointments.Upsert)
}

func (s *Service) LinkedAppointments(ctx context.Context, facilityID, demographicID int) ([]*Appointment, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Appointments.ListByDemographic)
}

func (s *Service) SetForms(ctx context.Context, facilityID int, items []*Form) (*BatchResult, error) {
	return storeBatch(ctx, items, func(f *Form) { f.FacilityID = facilityID }, s.repos.Forms.Upsert)
}

func (s *Service) LinkedForms(ctx context.Context, facilityID, demographicID int) ([]*Form, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Forms.ListByDemographic)
}

// GetForm fetches one cached form by its composite key, consent-gated when
// it belongs to another facility.
func (s *Service) GetForm(ctx context.Context, requestingFacilityID, ownerFacilityID, formID int) (*Form, error) {
	return getRecord(ctx, s, requestingFacilityID, ownerFacilityID, formID,
		s.repos.Forms.GetByKey, func(f *Form) int { return f.DemographicID })
}

func (s *Service) SetAdmissions(ctx context.Context, facilityID int, items []*Admission) (*BatchResult, error) {
	return storeBatch(ctx, items, func(a *Admission) { a.FacilityID = facilityID }, s.repos.Admissions.Upsert)
}

func (s *Service) LinkedAdmissions(ctx context.Context, facilityID, demographicID int) ([]*Admission, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Admissions.ListByDemographic)
}

func (s *Service) SetMeasurements(ctx context.Context, facilityID int, items []*Measurement) (*BatchResult, error) {
	return storeBatch(ctx, items, func(m *Measurement) { m.FacilityID = facilityID }, s.repos.Measurements.Upsert)
}

func (s *Service) LinkedMeasurements(ctx context.Context, facilityID, demographicID int) ([]*Measurement, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Measurements.ListByDemographic)
}

func (s *Service) SetBillingItems(ctx context.Context, facilityID int, items []*BillingItem) (*BatchResult, error) {
	return storeBatch(ctx, items, func(b *BillingItem) { b.FacilityID = facilityID }, s.repos.BillingItems.Upsert)
}

func (s *Service) LinkedBillingItems(ctx context.Context, facilityID, demographicID int) ([]*BillingItem, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.BillingItems.ListByDemographic)
}

func (s *Service) SetEformData(ctx context.Context, facilityID int, items []*EformData) (*BatchResult, error) {
	return storeBatch(ctx, items, func(e *EformData) { e.FacilityID = facilityID }, s.repos.EformData.Upsert)
}

func (s *Service) LinkedEformData(ctx context.Context, facilityID, demographicID int) ([]*EformData, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.EformData.ListByDemographic)
}

func (s *Service) SetEformValues(ctx context.Context, facilityID int, items []*EformValue) (*BatchResult, error) {
	return storeBatch(ctx, items, func(e *EformValue) { e.FacilityID = facilityID }, s.repos.EformValues.Upsert)
}

func (s *Service) LinkedEformValues(ctx context.Context, facilityID, demographicID int) ([]*EformValue, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.EformValues.ListByDemographic)
}

func (s *Service) SetIssues(ctx context.Context, facilityID int, items []*Issue) (*BatchResult, error) {
	return storeBatch(ctx, items, func(i *Issue) { i.FacilityID = facilityID }, s.repos.Issues.Upsert)
}

func (s *Service) LinkedIssues(ctx context.Context, facilityID, demographicID int) ([]*Issue, error) {
	return listLinked(ctx, s, facilityID, demographicID, s.repos.Issues.ListByDemographic)
}

// DeleteIssues removes the listed cached issues ahead of a re-push. Ids with
// no cached row are ignored, so repeated deletes are safe.
func (s *Service) DeleteIssues(ctx context.Context, facilityID int, issueIDs []int) error {
	return s.repos.Issues.DeleteByIDs(ctx, facilityID, issueIDs)
}
