package merge

import "time"

// DemographicMerged records that a duplicate demographic (the child) was
// folded into a surviving one (the parent) at a facility. Unmerge never
// removes the row; it flips Deleted so the history survives.
type DemographicMerged struct {
	ID             int       `db:"id" json:"id"`
	FacilityID     int       `db:"facility_id" json:"facility_id"`
	ChildID        int       `db:"child_id" json:"child_id"`
	ParentID       int       `db:"parent_id" json:"parent_id"`
	Deleted        bool      `db:"deleted" json:"deleted"`
	LastUpdateUser *string   `db:"last_update_user" json:"last_update_user,omitempty"`
	LastUpdateDate time.Time `db:"last_update_date" json:"last_update_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
