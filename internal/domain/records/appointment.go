package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Appointment is a cached appointment record.
type Appointment struct {
	FacilityID      int        `db:"facility_id" json:"facility_id"`
	AppointmentID   int        `db:"appointment_id" json:"appointment_id"`
	DemographicID   int        `db:"demographic_id" json:"demographic_id"`
	ProviderID      *string    `db:"provider_id" json:"provider_id,omitempty"`
	AppointmentDate time.Time  `db:"appointment_date" json:"appointment_date"`
	StartTime       *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	Status          *string    `db:"status" json:"status,omitempty"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	UpdateDate      *time.Time `db:"update_date" json:"update_date,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) Validate() error {
	if a.AppointmentID <= 0 {
		return fmt.Errorf("invalid appointment id %d", a.AppointmentID)
	}
	if a.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", a.DemographicID)
	}
	if a.AppointmentDate.IsZero() {
		return errors.New("appointment date is required")
	}
	return nil
}

func (a *Appointment) RecordID() string { return strconv.Itoa(a.AppointmentID) }

type AppointmentRepository interface {
	Upsert(ctx context.Context, a *Appointment) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Appointment, error)
}

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) Upsert(ctx context.Context, a *Appointment) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_appointment (facility_id, appointment_id, demographic_id,
			provider_id, appointment_date, start_time, end_time, status, reason,
			notes, update_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (facility_id, appointment_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, provider_id=EXCLUDED.provider_id,
			appointment_date=EXCLUDED.appointment_date, start_time=EXCLUDED.start_time,
			end_time=EXCLUDED.end_time, status=EXCLUDED.status, reason=EXCLUDED.reason,
			notes=EXCLUDED.notes, update_date=EXCLUDED.update_date, updated_at=NOW()`,
		a.FacilityID, a.AppointmentID, a.DemographicID,
		a.ProviderID, a.AppointmentDate, a.StartTime, a.EndTime, a.Status, a.Reason,
		a.Notes, a.UpdateDate)
	return err
}

func (r *appointmentRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Appointment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, appointment_id, demographic_id, provider_id,
			appointment_date, start_time, end_time, status, reason, notes,
			update_date, created_at, updated_at
		FROM cached_appointment
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY appointment_date, appointment_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.FacilityID, &a.AppointmentID, &a.DemographicID,
			&a.ProviderID, &a.AppointmentDate, &a.StartTime, &a.EndTime, &a.Status,
			&a.Reason, &a.Notes, &a.UpdateDate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
