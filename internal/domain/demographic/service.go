package demographic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// exactMatchLimit caps the exact-match query. Anything beyond one row means
// the attributes are ambiguous and no automatic match is returned.
const exactMatchLimit = 2

var (
	ErrEmptySearch      = errors.New("no search attributes provided")
	ErrLastNameRequired = errors.New("last name is required for fuzzy matching")
)

// LinkedNode identifies a demographic at a facility, as resolved through the
// link graph.
type LinkedNode struct {
	FacilityID    int `json:"facility_id"`
	DemographicID int `json:"demographic_id"`
}

// LinkResolver answers which remote demographics a local one is linked to.
// Implemented by the linkage service, adapted in main.
type LinkResolver interface {
	DirectLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error)
	AllLinked(ctx context.Context, facilityID, demographicID int) ([]LinkedNode, error)
}

// ConsentChecker decides whether a requesting facility may see a
// demographic's data. Implemented by the consent service, adapted in main.
type ConsentChecker interface {
	HasConsent(ctx context.Context, facilityID, demographicID, requestingFacilityID int) (bool, error)
}

type Service struct {
	repo     DemographicRepository
	links    LinkResolver
	consents ConsentChecker
}

func NewService(repo DemographicRepository, links LinkResolver, consents ConsentChecker) *Service {
	return &Service{repo: repo, links: links, consents: consents}
}

// SetDemographic stores or replaces the cached demographic pushed by
// facilityID. The caller's facility always owns the row; the payload cannot
// write into another facility's cache.
func (s *Service) SetDemographic(ctx context.Context, facilityID int, d *Demographic) error {
	d.FacilityID = facilityID
	if d.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", d.DemographicID)
	}
	if d.FirstName == "" || d.LastName == "" {
		return errors.New("first and last name are required")
	}
	if d.Gender == "" {
		d.Gender = GenderUndefined
	}
	if !d.Gender.Valid() {
		return fmt.Errorf("invalid gender %q", d.Gender)
	}
	return s.repo.Upsert(ctx, d)
}

func (s *Service) GetByKey(ctx context.Context, facilityID, demographicID int) (*Demographic, error) {
	return s.repo.GetByKey(ctx, facilityID, demographicID)
}

// FindExactMatch returns the single demographic matching every provided
// attribute, or nil when zero or more than one candidate matches. An
// ambiguous result is treated as no match rather than a guess.
func (s *Service) FindExactMatch(ctx context.Context, p *MatchParameters) (*Demographic, error) {
	if p.Empty() {
		return nil, ErrEmptySearch
	}
	candidates, err := s.repo.FindExact(ctx, p, exactMatchLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		return nil, nil
	}
	return candidates[0], nil
}

// GetMatching runs the fuzzy search: candidates share the last name and any
// parseable date-of-birth parts, and each is scored against the full
// attribute set. Results are ordered best first. Scores inform human review;
// callers must not link on them automatically.
func (s *Service) GetMatching(ctx context.Context, p *MatchParameters) ([]*MatchScore, error) {
	if p.LastName == "" {
		return nil, ErrLastNameRequired
	}

	year, month, day, ok := p.BirthDateParts()
	if !ok {
		// Unparsable date input widens the search instead of failing it.
		year, month, day = nil, nil, nil
	}

	candidates, err := s.repo.FindByLastNameAndDOB(ctx, p.LastName, year, month, day)
	if err != nil {
		return nil, err
	}

	scores := make([]*MatchScore, 0, len(candidates))
	for _, d := range candidates {
		scores = append(scores, &MatchScore{Demographic: d, Score: scoreCandidate(p, d)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores, nil
}

// PushedAfter returns every cached demographic whose push date is strictly
// after the checkpoint, across all facilities.
func (s *Service) PushedAfter(ctx context.Context, t time.Time) ([]*Demographic, error) {
	return s.repo.PushedAfter(ctx, t)
}

// IDsPushedAfterForFacility resolves recently pushed demographics back to the
// requesting facility's own patient ids. A remote push shows up only when a
// link connects it to a local demographic and consent permits the requester
// to see it. The requester's own pushes are always included.
func (s *Service) IDsPushedAfterForFacility(ctx context.Context, requestingFacilityID int, t time.Time) ([]int, error) {
	pushed, err := s.repo.PushedAfter(ctx, t)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, d := range pushed {
		if d.FacilityID == requestingFacilityID {
			seen[d.DemographicID] = true
			continue
		}

		linked, err := s.links.AllLinked(ctx, d.FacilityID, d.DemographicID)
		if err != nil {
			return nil, err
		}
		for _, n := range linked {
			if n.FacilityID != requestingFacilityID || seen[n.DemographicID] {
				continue
			}
			allowed, err := s.consents.HasConsent(ctx, d.FacilityID, d.DemographicID, requestingFacilityID)
			if err != nil {
				return nil, err
			}
			if allowed {
				seen[n.DemographicID] = true
			}
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// GetLinkedDemographics returns the cached demographics linked to the
// requester's patient, consent-filtered. direct restricts the walk to
// one hop; otherwise the full transitive closure is used.
func (s *Service) GetLinkedDemographics(ctx context.Context, requestingFacilityID, demographicID int, direct bool) ([]*Demographic, error) {
	var (
		nodes []LinkedNode
		err   error
	)
	if direct {
		nodes, err = s.links.DirectLinked(ctx, requestingFacilityID, demographicID)
	} else {
		nodes, err = s.links.AllLinked(ctx, requestingFacilityID, demographicID)
	}
	if err != nil {
		return nil, err
	}

	var out []*Demographic
	for _, n := range nodes {
		allowed, err := s.consents.HasConsent(ctx, n.FacilityID, n.DemographicID, requestingFacilityID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		d, err := s.repo.GetByKey(ctx, n.FacilityID, n.DemographicID)
		if errors.Is(err, ErrNotFound) {
			// Linked but never pushed here. Nothing to return for it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
