package facility

import "time"

// Facility is one participating EMR installation in the federation. Ids are
// assigned by the directory and never reused; facilities are disabled, not
// deleted.
type Facility struct {
	ID                        int        `db:"id" json:"id"`
	Name                      string     `db:"name" json:"name"`
	Description               *string    `db:"description" json:"description,omitempty"`
	ContactEmail              *string    `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone              *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	URL                       *string    `db:"url" json:"url,omitempty"`
	Enabled                   bool       `db:"enabled" json:"enabled"`
	AllowsIntegratedReferrals bool       `db:"allows_integrated_referrals" json:"allows_integrated_referrals"`
	LastConnected             *time.Time `db:"last_connected" json:"last_connected,omitempty"`
	LastPushDate              *time.Time `db:"last_push_date" json:"last_push_date,omitempty"`
	CreatedAt                 time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at" json:"updated_at"`
}
