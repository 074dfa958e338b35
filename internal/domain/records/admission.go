package records

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Admission is a cached program admission record.
type Admission struct {
	FacilityID     int        `db:"facility_id" json:"facility_id"`
	AdmissionID    int        `db:"admission_id" json:"admission_id"`
	DemographicID  int        `db:"demographic_id" json:"demographic_id"`
	ProgramID      *int       `db:"program_id" json:"program_id,omitempty"`
	ProgramName    *string    `db:"program_name" json:"program_name,omitempty"`
	ProgramType    *string    `db:"program_type" json:"program_type,omitempty"`
	AdmissionDate  *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	DischargeDate  *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	AdmissionNotes *string    `db:"admission_notes" json:"admission_notes,omitempty"`
	DischargeNotes *string    `db:"discharge_notes" json:"discharge_notes,omitempty"`
	Status         *string    `db:"status" json:"status,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Admission) Validate() error {
	if a.AdmissionID <= 0 {
		return fmt.Errorf("invalid admission id %d", a.AdmissionID)
	}
	if a.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", a.DemographicID)
	}
	return nil
}

func (a *Admission) RecordID() string { return strconv.Itoa(a.AdmissionID) }

type AdmissionRepository interface {
	Upsert(ctx context.Context, a *Admission) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Admission, error)
}

type admissionRepoPG struct{ pool *pgxpool.Pool }

func NewAdmissionRepoPG(pool *pgxpool.Pool) AdmissionRepository {
	return &admissionRepoPG{pool: pool}
}

func (r *admissionRepoPG) Upsert(ctx context.Context, a *Admission) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_admission (facility_id, admission_id, demographic_id,
			program_id, program_name, program_type, admission_date, discharge_date,
			admission_notes, discharge_notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (facility_id, admission_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, program_id=EXCLUDED.program_id,
			program_name=EXCLUDED.program_name, program_type=EXCLUDED.program_type,
			admission_date=EXCLUDED.admission_date,
			discharge_date=EXCLUDED.discharge_date,
			admission_notes=EXCLUDED.admission_notes,
			discharge_notes=EXCLUDED.discharge_notes,
			status=EXCLUDED.status, updated_at=NOW()`,
		a.FacilityID, a.AdmissionID, a.DemographicID,
		a.ProgramID, a.ProgramName, a.ProgramType, a.AdmissionDate, a.DischargeDate,
		a.AdmissionNotes, a.DischargeNotes, a.Status)
	return err
}

func (r *admissionRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Admission, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, admission_id, demographic_id, program_id, program_name,
			program_type, admission_date, discharge_date, admission_notes,
			discharge_notes, status, created_at, updated_at
		FROM cached_admission
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY admission_date NULLS LAST, admission_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Admission
	for rows.Next() {
		var a Admission
		if err := rows.Scan(&a.FacilityID, &a.AdmissionID, &a.DemographicID,
			&a.ProgramID, &a.ProgramName, &a.ProgramType, &a.AdmissionDate,
			&a.DischargeDate, &a.AdmissionNotes, &a.DischargeNotes, &a.Status,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
