package consent

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	repo ConsentRepository
}

func NewService(repo ConsentRepository) *Service {
	return &Service{repo: repo}
}

// SetConsent records a new consent decision for a demographic at the calling
// facility. Each call appends; the newest record wins on read.
func (s *Service) SetConsent(ctx context.Context, facilityID int, t *SetConsentTransfer) error {
	if facilityID <= 0 {
		return fmt.Errorf("facility id is required")
	}
	if t.DemographicID <= 0 {
		return fmt.Errorf("demographic id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("status must be %s or %s", StatusGiven, StatusRevoked)
	}
	typeName := t.ConsentType
	if typeName == "" {
		typeName = IntegratorConsentType
	}
	ct, err := s.repo.GetTypeByName(ctx, typeName)
	if err != nil {
		return err
	}

	c := &Consent{
		FacilityID:              facilityID,
		DemographicID:           t.DemographicID,
		ConsentTypeID:           ct.ID,
		Status:                  t.Status,
		ExcludeMentalHealthData: t.ExcludeMentalHealthData,
		Expiry:                  t.Expiry,
	}
	return s.repo.Create(ctx, c, t.ConsentToShareData)
}

// GetConsentState reports the current consent for a facility-scoped
// demographic. No record means StatusUnknown, which every gate treats as
// not consented.
func (s *Service) GetConsentState(ctx context.Context, facilityID, demographicID int) (*GetConsentTransfer, error) {
	if facilityID <= 0 || demographicID <= 0 {
		return nil, fmt.Errorf("facility id and demographic id are required")
	}
	ct, err := s.repo.GetTypeByName(ctx, IntegratorConsentType)
	if err != nil {
		return nil, err
	}

	out := &GetConsentTransfer{
		FacilityID:    facilityID,
		DemographicID: demographicID,
		Status:        StatusUnknown,
	}

	c, err := s.repo.Latest(ctx, facilityID, demographicID, ct.ID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return out, nil
	}

	out.Status = c.Status
	created := c.CreatedAt
	out.CreatedAt = &created
	out.Expiry = c.Expiry
	pairs, err := s.repo.PairsForConsent(ctx, c)
	if err != nil {
		return nil, err
	}
	out.ConsentToShareData = pairs
	return out, nil
}

// HasConsent is the gate every cross-facility read goes through. It reports
// whether requestingFacilityID may see data originated at
// (facilityID, demographicID). Fail-closed: no record, revoked, expired, or
// an unlisted requester when share pairs were recorded all deny.
func (s *Service) HasConsent(ctx context.Context, facilityID, demographicID, requestingFacilityID int) (bool, error) {
	ct, err := s.repo.GetTypeByName(ctx, IntegratorConsentType)
	if err != nil {
		return false, err
	}
	c, err := s.repo.Latest(ctx, facilityID, demographicID, ct.ID)
	if err != nil {
		return false, err
	}
	if c == nil || c.Status != StatusGiven {
		return false, nil
	}
	if c.Expiry != nil && !c.Expiry.After(time.Now()) {
		return false, nil
	}

	pairs, err := s.repo.PairsForConsent(ctx, c)
	if err != nil {
		return false, err
	}
	if len(pairs) == 0 {
		return true, nil
	}
	for _, p := range pairs {
		if p.RemoteFacilityID == requestingFacilityID {
			return p.ShareData, nil
		}
	}
	return false, nil
}
