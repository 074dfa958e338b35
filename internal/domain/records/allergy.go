package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Allergy is a cached allergy record pushed by its owning facility, keyed by
// the facility and the record's id at that facility.
type Allergy struct {
	FacilityID    int        `db:"facility_id" json:"facility_id"`
	AllergyID     int        `db:"allergy_id" json:"allergy_id"`
	DemographicID int        `db:"demographic_id" json:"demographic_id"`
	EntryDate     *time.Time `db:"entry_date" json:"entry_date,omitempty"`
	Description   string     `db:"description" json:"description"`
	Reaction      *string    `db:"reaction" json:"reaction,omitempty"`
	Severity      *string    `db:"severity" json:"severity,omitempty"`
	OnsetCode     *string    `db:"onset_code" json:"onset_code,omitempty"`
	AgeOfOnset    *string    `db:"age_of_onset" json:"age_of_onset,omitempty"`
	StartDate     *time.Time `db:"start_date" json:"start_date,omitempty"`
	LifeStage     *string    `db:"life_stage" json:"life_stage,omitempty"`
	Archived      bool       `db:"archived" json:"archived"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Allergy) Validate() error {
	if a.AllergyID <= 0 {
		return fmt.Errorf("invalid allergy id %d", a.AllergyID)
	}
	if a.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", a.DemographicID)
	}
	if a.Description == "" {
		return errors.New("description is required")
	}
	return nil
}

func (a *Allergy) RecordID() string { return strconv.Itoa(a.AllergyID) }

type AllergyRepository interface {
	Upsert(ctx context.Context, a *Allergy) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Allergy, error)
}

type allergyRepoPG struct{ pool *pgxpool.Pool }

func NewAllergyRepoPG(pool *pgxpool.Pool) AllergyRepository {
	return &allergyRepoPG{pool: pool}
}

func (r *allergyRepoPG) Upsert(ctx context.Context, a *Allergy) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_allergy (facility_id, allergy_id, demographic_id, entry_date,
			description, reaction, severity, onset_code, age_of_onset, start_date,
			life_stage, archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (facility_id, allergy_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, entry_date=EXCLUDED.entry_date,
			description=EXCLUDED.description, reaction=EXCLUDED.reaction,
			severity=EXCLUDED.severity, onset_code=EXCLUDED.onset_code,
			age_of_onset=EXCLUDED.age_of_onset, start_date=EXCLUDED.start_date,
			life_stage=EXCLUDED.life_stage, archived=EXCLUDED.archived,
			updated_at=NOW()`,
		a.FacilityID, a.AllergyID, a.DemographicID, a.EntryDate,
		a.Description, a.Reaction, a.Severity, a.OnsetCode, a.AgeOfOnset, a.StartDate,
		a.LifeStage, a.Archived)
	return err
}

func (r *allergyRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Allergy, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, allergy_id, demographic_id, entry_date, description,
			reaction, severity, onset_code, age_of_onset, start_date, life_stage,
			archived, created_at, updated_at
		FROM cached_allergy
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY allergy_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.FacilityID, &a.AllergyID, &a.DemographicID, &a.EntryDate,
			&a.Description, &a.Reaction, &a.Severity, &a.OnsetCode, &a.AgeOfOnset,
			&a.StartDate, &a.LifeStage, &a.Archived, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
