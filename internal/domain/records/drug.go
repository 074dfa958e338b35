package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Drug is a cached prescription record.
type Drug struct {
	FacilityID         int        `db:"facility_id" json:"facility_id"`
	DrugID             int        `db:"drug_id" json:"drug_id"`
	DemographicID      int        `db:"demographic_id" json:"demographic_id"`
	ProviderID         *string    `db:"provider_id" json:"provider_id,omitempty"`
	BrandName          *string    `db:"brand_name" json:"brand_name,omitempty"`
	GenericName        *string    `db:"generic_name" json:"generic_name,omitempty"`
	Dosage             string     `db:"dosage" json:"dosage"`
	RxDate             *time.Time `db:"rx_date" json:"rx_date,omitempty"`
	EndDate            *time.Time `db:"end_date" json:"end_date,omitempty"`
	Frequency          *string    `db:"frequency" json:"frequency,omitempty"`
	Duration           *string    `db:"duration" json:"duration,omitempty"`
	Quantity           *string    `db:"quantity" json:"quantity,omitempty"`
	Repeats            *int       `db:"repeats" json:"repeats,omitempty"`
	Instructions       *string    `db:"instructions" json:"instructions,omitempty"`
	ATC                *string    `db:"atc" json:"atc,omitempty"`
	RegionalIdentifier *string    `db:"regional_identifier" json:"regional_identifier,omitempty"`
	Archived           bool       `db:"archived" json:"archived"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (d *Drug) Validate() error {
	if d.DrugID <= 0 {
		return fmt.Errorf("invalid drug id %d", d.DrugID)
	}
	if d.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", d.DemographicID)
	}
	if d.Dosage == "" {
		return errors.New("dosage is required")
	}
	if d.BrandName == nil && d.GenericName == nil {
		return errors.New("brand or generic name is required")
	}
	return nil
}

func (d *Drug) RecordID() string { return strconv.Itoa(d.DrugID) }

type DrugRepository interface {
	Upsert(ctx context.Context, d *Drug) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Drug, error)
}

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository {
	return &drugRepoPG{pool: pool}
}

func (r *drugRepoPG) Upsert(ctx context.Context, d *Drug) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_drug (facility_id, drug_id, demographic_id, provider_id,
			brand_name, generic_name, dosage, rx_date, end_date, frequency, duration,
			quantity, repeats, instructions, atc, regional_identifier, archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (facility_id, drug_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, provider_id=EXCLUDED.provider_id,
			brand_name=EXCLUDED.brand_name, generic_name=EXCLUDED.generic_name,
			dosage=EXCLUDED.dosage, rx_date=EXCLUDED.rx_date, end_date=EXCLUDED.end_date,
			frequency=EXCLUDED.frequency, duration=EXCLUDED.duration,
			quantity=EXCLUDED.quantity, repeats=EXCLUDED.repeats,
			instructions=EXCLUDED.instructions, atc=EXCLUDED.atc,
			regional_identifier=EXCLUDED.regional_identifier,
			archived=EXCLUDED.archived, updated_at=NOW()`,
		d.FacilityID, d.DrugID, d.DemographicID, d.ProviderID,
		d.BrandName, d.GenericName, d.Dosage, d.RxDate, d.EndDate, d.Frequency, d.Duration,
		d.Quantity, d.Repeats, d.Instructions, d.ATC, d.RegionalIdentifier, d.Archived)
	return err
}

func (r *drugRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Drug, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, drug_id, demographic_id, provider_id, brand_name,
			generic_name, dosage, rx_date, end_date, frequency, duration, quantity,
			repeats, instructions, atc, regional_identifier, archived, created_at, updated_at
		FROM cached_drug
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY drug_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Drug
	for rows.Next() {
		var d Drug
		if err := rows.Scan(&d.FacilityID, &d.DrugID, &d.DemographicID, &d.ProviderID,
			&d.BrandName, &d.GenericName, &d.Dosage, &d.RxDate, &d.EndDate, &d.Frequency,
			&d.Duration, &d.Quantity, &d.Repeats, &d.Instructions, &d.ATC,
			&d.RegionalIdentifier, &d.Archived, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
