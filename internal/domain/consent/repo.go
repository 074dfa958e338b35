package consent

import (
	"context"
	"errors"
)

var ErrTypeNotFound = errors.New("consent type not found")

type ConsentRepository interface {
	GetTypeByName(ctx context.Context, name string) (*ConsentType, error)
	// Create stores the consent decision and its facility share pairs.
	Create(ctx context.Context, c *Consent, pairs []FacilityConsentPair) error
	// Latest returns the newest consent for the key, nil when none exists.
	Latest(ctx context.Context, facilityID, demographicID, consentTypeID int) (*Consent, error)
	PairsForConsent(ctx context.Context, c *Consent) ([]FacilityConsentPair, error)
}
