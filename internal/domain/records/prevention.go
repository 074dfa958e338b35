package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Prevention is a cached prevention or immunization record. Facilities push
// their full prevention set after deleting the previous one, so deletes here
// must be idempotent.
type Prevention struct {
	FacilityID     int        `db:"facility_id" json:"facility_id"`
	PreventionID   int        `db:"prevention_id" json:"prevention_id"`
	DemographicID  int        `db:"demographic_id" json:"demographic_id"`
	PreventionDate *time.Time `db:"prevention_date" json:"prevention_date,omitempty"`
	PreventionType string     `db:"prevention_type" json:"prevention_type"`
	ProviderID     *string    `db:"provider_id" json:"provider_id,omitempty"`
	Refused        bool       `db:"refused" json:"refused"`
	NextDate       *time.Time `db:"next_date" json:"next_date,omitempty"`
	Comments       *string    `db:"comments" json:"comments,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Prevention) Validate() error {
	if p.PreventionID <= 0 {
		return fmt.Errorf("invalid prevention id %d", p.PreventionID)
	}
	if p.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", p.DemographicID)
	}
	if p.PreventionType == "" {
		return errors.New("prevention type is required")
	}
	return nil
}

func (p *Prevention) RecordID() string { return strconv.Itoa(p.PreventionID) }

type PreventionRepository interface {
	Upsert(ctx context.Context, p *Prevention) error
	// GetByKey returns the prevention by its composite key, or
	// ErrRecordNotFound.
	GetByKey(ctx context.Context, facilityID, preventionID int) (*Prevention, error)
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Prevention, error)
	// DeleteByIDs removes the listed preventions. Ids with no cached row are
	// skipped, not errors.
	DeleteByIDs(ctx context.Context, facilityID int, preventionIDs []int) error
}

type preventionRepoPG struct{ pool *pgxpool.Pool }

func NewPreventionRepoPG(pool *pgxpool.Pool) PreventionRepository {
	return &preventionRepoPG{pool: pool}
}

func (r *preventionRepoPG) Upsert(ctx context.Context, p *Prevention) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_prevention (facility_id, prevention_id, demographic_id,
			prevention_date, prevention_type, provider_id, refused, next_date, comments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (facility_id, prevention_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id,
			prevention_date=EXCLUDED.prevention_date,
			prevention_type=EXCLUDED.prevention_type, provider_id=EXCLUDED.provider_id,
			refused=EXCLUDED.refused, next_date=EXCLUDED.next_date,
			comments=EXCLUDED.comments, updated_at=NOW()`,
		p.FacilityID, p.PreventionID, p.DemographicID,
		p.PreventionDate, p.PreventionType, p.ProviderID, p.Refused, p.NextDate, p.Comments)
	return err
}

func (r *preventionRepoPG) GetByKey(ctx context.Context, facilityID, preventionID int) (*Prevention, error) {
	var p Prevention
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT facility_id, prevention_id, demographic_id, prevention_date,
			prevention_type, provider_id, refused, next_date, comments, created_at, updated_at
		FROM cached_prevention
		WHERE facility_id=$1 AND prevention_id=$2`, facilityID, preventionID).
		Scan(&p.FacilityID, &p.PreventionID, &p.DemographicID,
			&p.PreventionDate, &p.PreventionType, &p.ProviderID, &p.Refused,
			&p.NextDate, &p.Comments, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *preventionRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Prevention, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, prevention_id, demographic_id, prevention_date,
			prevention_type, provider_id, refused, next_date, comments, created_at, updated_at
		FROM cached_prevention
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY prevention_date NULLS LAST, prevention_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Prevention
	for rows.Next() {
		var p Prevention
		if err := rows.Scan(&p.FacilityID, &p.PreventionID, &p.DemographicID,
			&p.PreventionDate, &p.PreventionType, &p.ProviderID, &p.Refused,
			&p.NextDate, &p.Comments, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *preventionRepoPG) DeleteByIDs(ctx context.Context, facilityID int, preventionIDs []int) error {
	if len(preventionIDs) == 0 {
		return nil
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM cached_prevention WHERE facility_id=$1 AND prevention_id = ANY($2)`,
		facilityID, preventionIDs)
	return err
}
