package consent

import (
	"time"

	"github.com/google/uuid"
)

// Status is the recorded consent decision. Absence of any record means not
// consented; the gate is fail-closed.
type Status string

const (
	StatusGiven   Status = "GIVEN"
	StatusRevoked Status = "REVOKED"
	// StatusUnknown is never stored. It is reported when no consent record
	// exists for a demographic.
	StatusUnknown Status = "UNKNOWN"
)

func (s Status) Valid() bool {
	return s == StatusGiven || s == StatusRevoked
}

// IntegratorConsentType is the consent category gating cross-facility reads.
const IntegratorConsentType = "INTEGRATOR_PATIENT_CONSENT"

// ConsentType is a named consent category. Categories are independent: a
// patient may consent to federation data sharing and decline others.
type ConsentType struct {
	ID          int     `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Consent is one recorded consent decision for a facility-scoped demographic.
// The newest record per (facility, demographic, type) wins.
type Consent struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	FacilityID              int        `db:"facility_id" json:"facility_id"`
	DemographicID           int        `db:"demographic_id" json:"demographic_id"`
	ConsentTypeID           int        `db:"consent_type_id" json:"consent_type_id"`
	Status                  Status     `db:"status" json:"status"`
	ExcludeMentalHealthData bool       `db:"exclude_mental_health_data" json:"exclude_mental_health_data"`
	Expiry                  *time.Time `db:"expiry" json:"expiry,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
}

// FacilityConsentPair narrows a GIVEN consent to specific remote facilities.
// When any pairs are recorded, a facility absent from the list may not read.
type FacilityConsentPair struct {
	ConsentID        uuid.UUID `db:"consent_id" json:"-"`
	RemoteFacilityID int       `db:"remote_facility_id" json:"remote_facility_id"`
	ShareData        bool      `db:"share_data" json:"share_data"`
}

// SetConsentTransfer is the write shape accepted from facilities.
type SetConsentTransfer struct {
	DemographicID           int                   `json:"demographic_id"`
	ConsentType             string                `json:"consent_type"`
	Status                  Status                `json:"status"`
	ExcludeMentalHealthData bool                  `json:"exclude_mental_health_data"`
	Expiry                  *time.Time            `json:"expiry,omitempty"`
	ConsentToShareData      []FacilityConsentPair `json:"consent_to_share_data,omitempty"`
}

// GetConsentTransfer is the read shape returned to facilities.
type GetConsentTransfer struct {
	FacilityID         int                   `json:"facility_id"`
	DemographicID      int                   `json:"demographic_id"`
	Status             Status                `json:"status"`
	CreatedAt          *time.Time            `json:"created_at,omitempty"`
	Expiry             *time.Time            `json:"expiry,omitempty"`
	ConsentToShareData []FacilityConsentPair `json:"consent_to_share_data,omitempty"`
}
