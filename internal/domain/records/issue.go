package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Issue is a cached diagnosis or problem-list entry. Facilities replace a
// demographic's issue set wholesale, so deletes are idempotent.
type Issue struct {
	FacilityID     int        `db:"facility_id" json:"facility_id"`
	IssueID        int        `db:"issue_id" json:"issue_id"`
	DemographicID  int        `db:"demographic_id" json:"demographic_id"`
	Code           string     `db:"code" json:"code"`
	CodingSystem   *string    `db:"coding_system" json:"coding_system,omitempty"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Status         *string    `db:"status" json:"status,omitempty"`
	Acute          bool       `db:"acute" json:"acute"`
	Certain        bool       `db:"certain" json:"certain"`
	Major          bool       `db:"major" json:"major"`
	StartDate      *time.Time `db:"start_date" json:"start_date,omitempty"`
	ResolutionDate *time.Time `db:"resolution_date" json:"resolution_date,omitempty"`
	UpdateDate     *time.Time `db:"update_date" json:"update_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (i *Issue) Validate() error {
	if i.IssueID <= 0 {
		return fmt.Errorf("invalid issue id %d", i.IssueID)
	}
	if i.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", i.DemographicID)
	}
	if i.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

func (i *Issue) RecordID() string { return strconv.Itoa(i.IssueID) }

type IssueRepository interface {
	Upsert(ctx context.Context, i *Issue) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Issue, error)
	// DeleteByIDs removes the listed issues. Ids with no cached row are
	// skipped, not errors.
	DeleteByIDs(ctx context.Context, facilityID int, issueIDs []int) error
}

type issueRepoPG struct{ pool *pgxpool.Pool }

func NewIssueRepoPG(pool *pgxpool.Pool) IssueRepository {
	return &issueRepoPG{pool: pool}
}

func (r *issueRepoPG) Upsert(ctx context.Context, i *Issue) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_issue (facility_id, issue_id, demographic_id, code,
			coding_system, description, status, acute, certain, major,
			start_date, resolution_date, update_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (facility_id, issue_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, code=EXCLUDED.code,
			coding_system=EXCLUDED.coding_system, description=EXCLUDED.description,
			status=EXCLUDED.status, acute=EXCLUDED.acute, certain=EXCLUDED.certain,
			major=EXCLUDED.major, start_date=EXCLUDED.start_date,
			resolution_date=EXCLUDED.resolution_date,
			update_date=EXCLUDED.update_date, updated_at=NOW()`,
		i.FacilityID, i.IssueID, i.DemographicID, i.Code,
		i.CodingSystem, i.Description, i.Status, i.Acute, i.Certain, i.Major,
		i.StartDate, i.ResolutionDate, i.UpdateDate)
	return err
}

func (r *issueRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Issue, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, issue_id, demographic_id, code, coding_system,
			description, status, acute, certain, major, start_date,
			resolution_date, update_date, created_at, updated_at
		FROM cached_issue
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY issue_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Issue
	for rows.Next() {
		var i Issue
		if err := rows.Scan(&i.FacilityID, &i.IssueID, &i.DemographicID, &i.Code,
			&i.CodingSystem, &i.Description, &i.Status, &i.Acute, &i.Certain,
			&i.Major, &i.StartDate, &i.ResolutionDate, &i.UpdateDate,
			&i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &i)
	}
	return items, rows.Err()
}

func (r *issueRepoPG) DeleteByIDs(ctx context.Context, facilityID int, issueIDs []int) error {
	if len(issueIDs) == 0 {
		return nil
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM cached_issue WHERE facility_id=$1 AND issue_id = ANY($2)`,
		facilityID, issueIDs)
	return err
}
