package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Measurement is a cached clinical measurement, for example a blood pressure
// or weight reading.
type Measurement struct {
	FacilityID           int        `db:"facility_id" json:"facility_id"`
	MeasurementID        int        `db:"measurement_id" json:"measurement_id"`
	DemographicID        int        `db:"demographic_id" json:"demographic_id"`
	MeasurementType      string     `db:"measurement_type" json:"measurement_type"`
	DataField            string     `db:"data_field" json:"data_field"`
	MeasuringInstruction *string    `db:"measuring_instruction" json:"measuring_instruction,omitempty"`
	Comments             *string    `db:"comments" json:"comments,omitempty"`
	ObservationDate      *time.Time `db:"observation_date" json:"observation_date,omitempty"`
	ProviderID           *string    `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

func (m *Measurement) Validate() error {
	if m.MeasurementID <= 0 {
		return fmt.Errorf("invalid measurement id %d", m.MeasurementID)
	}
	if m.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", m.DemographicID)
	}
	if m.MeasurementType == "" {
		return errors.New("measurement type is required")
	}
	if m.DataField == "" {
		return errors.New("data field is required")
	}
	return nil
}

func (m *Measurement) RecordID() string { return strconv.Itoa(m.MeasurementID) }

type MeasurementRepository interface {
	Upsert(ctx context.Context, m *Measurement) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Measurement, error)
}

type measurementRepoPG struct{ pool *pgxpool.Pool }

func NewMeasurementRepoPG(pool *pgxpool.Pool) MeasurementRepository {
	return &measurementRepoPG{pool: pool}
}

func (r *measurementRepoPG) Upsert(ctx context.Context, m *Measurement) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_measurement (facility_id, measurement_id, demographic_id,
			measurement_type, data_field, measuring_instruction, comments,
			observation_date, provider_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (facility_id, measurement_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id,
			measurement_type=EXCLUDED.measurement_type,
			data_field=EXCLUDED.data_field,
			measuring_instruction=EXCLUDED.measuring_instruction,
			comments=EXCLUDED.comments, observation_date=EXCLUDED.observation_date,
			provider_id=EXCLUDED.provider_id, updated_at=NOW()`,
		m.FacilityID, m.MeasurementID, m.DemographicID,
		m.MeasurementType, m.DataField, m.MeasuringInstruction, m.Comments,
		m.ObservationDate, m.ProviderID)
	return err
}

func (r *measurementRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Measurement, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, measurement_id, demographic_id, measurement_type,
			data_field, measuring_instruction, comments, observation_date,
			provider_id, created_at, updated_at
		FROM cached_measurement
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY observation_date NULLS LAST, measurement_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.FacilityID, &m.MeasurementID, &m.DemographicID,
			&m.MeasurementType, &m.DataField, &m.MeasuringInstruction, &m.Comments,
			&m.ObservationDate, &m.ProviderID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
