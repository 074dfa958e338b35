package demographic

import "time"

// Gender is the administrative sex/gender code carried on a demographic.
type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderTransgender Gender = "T"
	GenderOther       Gender = "O"
	GenderUndefined   Gender = "U"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderTransgender, GenderOther, GenderUndefined:
		return true
	}
	return false
}

// Demographic is the cached copy of a patient identity pushed by its owning
// facility. It is always a replica: the authoritative record lives at the
// origin facility and every write here comes through the push operation.
type Demographic struct {
	FacilityID      int        `db:"facility_id" json:"facility_id"`
	DemographicID   int        `db:"demographic_id" json:"demographic_id"`
	ProviderID      *string    `db:"provider_id" json:"provider_id,omitempty"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	BirthDate       *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender          Gender     `db:"gender" json:"gender"`
	HIN             *string    `db:"hin" json:"hin,omitempty"`
	HINType         *string    `db:"hin_type" json:"hin_type,omitempty"`
	HINVersion      *string    `db:"hin_version" json:"hin_version,omitempty"`
	HINValidStart   *time.Time `db:"hin_valid_start" json:"hin_valid_start,omitempty"`
	HINValidEnd     *time.Time `db:"hin_valid_end" json:"hin_valid_end,omitempty"`
	SIN             *string    `db:"sin" json:"sin,omitempty"`
	Province        *string    `db:"province" json:"province,omitempty"`
	City            *string    `db:"city" json:"city,omitempty"`
	StreetAddress   *string    `db:"street_address" json:"street_address,omitempty"`
	Phone1          *string    `db:"phone1" json:"phone1,omitempty"`
	Phone2          *string    `db:"phone2" json:"phone2,omitempty"`
	Photo           []byte     `db:"photo" json:"photo,omitempty"`
	PhotoUpdateDate *time.Time `db:"photo_update_date" json:"photo_update_date,omitempty"`
	LastUpdateUser  *string    `db:"last_update_user" json:"last_update_user,omitempty"`
	LastUpdateDate  *time.Time `db:"last_update_date" json:"last_update_date,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PushDate marks when a demographic's record set last changed. Incremental
// pulls ask for everything stamped after their checkpoint.
type PushDate struct {
	FacilityID    int       `db:"facility_id" json:"facility_id"`
	DemographicID int       `db:"demographic_id" json:"demographic_id"`
	LastPushDate  time.Time `db:"last_push_date" json:"last_push_date"`
}
