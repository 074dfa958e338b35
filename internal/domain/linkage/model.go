package linkage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Node addresses a demographic anywhere in the federation.
type Node struct {
	FacilityID    int `json:"facility_id"`
	DemographicID int `json:"demographic_id"`
}

func (n Node) Valid() bool {
	return n.FacilityID > 0 && n.DemographicID > 0
}

func (n Node) String() string {
	return fmt.Sprintf("%d/%d", n.FacilityID, n.DemographicID)
}

// DemographicLink asserts that two facility-local demographics are the same
// real patient. Stored directionally, queried undirected. Unlink deactivates;
// rows are never deleted so the assertion history survives.
type DemographicLink struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	CreatorProviderID   string    `db:"creator_provider_id" json:"creator_provider_id"`
	LinkFacilityID      int       `db:"link_facility_id" json:"link_facility_id"`
	LinkDemographicID   int       `db:"link_demographic_id" json:"link_demographic_id"`
	RemoteFacilityID    int       `db:"remote_facility_id" json:"remote_facility_id"`
	RemoteDemographicID int       `db:"remote_demographic_id" json:"remote_demographic_id"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func (l *DemographicLink) LocalNode() Node {
	return Node{FacilityID: l.LinkFacilityID, DemographicID: l.LinkDemographicID}
}

func (l *DemographicLink) RemoteNode() Node {
	return Node{FacilityID: l.RemoteFacilityID, DemographicID: l.RemoteDemographicID}
}

// Other returns the far side of the link as seen from n. The second return
// is false when n is on neither side.
func (l *DemographicLink) Other(n Node) (Node, bool) {
	switch n {
	case l.LocalNode():
		return l.RemoteNode(), true
	case l.RemoteNode():
		return l.LocalNode(), true
	}
	return Node{}, false
}
