package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EformData is a cached electronic form submission. Individual field values
// are pushed separately as EformValue rows keyed to the submission.
type EformData struct {
	FacilityID    int        `db:"facility_id" json:"facility_id"`
	EformDataID   int        `db:"eform_data_id" json:"eform_data_id"`
	DemographicID int        `db:"demographic_id" json:"demographic_id"`
	EformID       *int       `db:"eform_id" json:"eform_id,omitempty"`
	FormName      string     `db:"form_name" json:"form_name"`
	Subject       *string    `db:"subject" json:"subject,omitempty"`
	FormDate      *time.Time `db:"form_date" json:"form_date,omitempty"`
	FormData      []byte     `db:"form_data" json:"form_data,omitempty"`
	ProviderID    *string    `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (e *EformData) Validate() error {
	if e.EformDataID <= 0 {
		return fmt.Errorf("invalid eform data id %d", e.EformDataID)
	}
	if e.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", e.DemographicID)
	}
	if e.FormName == "" {
		return errors.New("form name is required")
	}
	return nil
}

// EformValue is a single named field from an electronic form submission.
type EformValue struct {
	FacilityID    int       `db:"facility_id" json:"facility_id"`
	EformValueID  int       `db:"eform_value_id" json:"eform_value_id"`
	DemographicID int       `db:"demographic_id" json:"demographic_id"`
	EformDataID   *int      `db:"eform_data_id" json:"eform_data_id,omitempty"`
	VarName       string    `db:"var_name" json:"var_name"`
	VarValue      *string   `db:"var_value" json:"var_value,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (e *EformValue) Validate() error {
	if e.EformValueID <= 0 {
		return fmt.Errorf("invalid eform value id %d", e.EformValueID)
	}
	if e.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", e.DemographicID)
	}
	if e.VarName == "" {
		return errors.New("var name is required")
	}
	return nil
}

func (e *EformData) RecordID() string { return strconv.Itoa(e.EformDataID) }

type EformDataRepository interface {
	Upsert(ctx context.Context, e *EformData) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*EformData, error)
}

func (e *EformValue) RecordID() string { return strconv.Itoa(e.EformValueID) }

type EformValueRepository interface {
	Upsert(ctx context.Context, e *EformValue) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*EformValue, error)
}

type eformDataRepoPG struct{ pool *pgxpool.Pool }

func NewEformDataRepoPG(pool *pgxpool.Pool) EformDataRepository {
	return &eformDataRepoPG{pool: pool}
}

func (r *eformDataRepoPG) Upsert(ctx context.Context, e *EformData) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_eform_data (facility_id, eform_data_id, demographic_id,
			eform_id, form_name, subject, form_date, form_data, provider_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (facility_id, eform_data_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, eform_id=EXCLUDED.eform_id,
			form_name=EXCLUDED.form_name, subject=EXCLUDED.subject,
			form_date=EXCLUDED.form_date, form_data=EXCLUDED.form_data,
			provider_id=EXCLUDED.provider_id, updated_at=NOW()`,
		e.FacilityID, e.EformDataID, e.DemographicID,
		e.EformID, e.FormName, e.Subject, e.FormDate, e.FormData, e.ProviderID)
	return err
}

func (r *eformDataRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*EformData, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, eform_data_id, demographic_id, eform_id, form_name,
			subject, form_date, form_data, provider_id, created_at, updated_at
		FROM cached_eform_data
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY eform_data_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*EformData
	for rows.Next() {
		var e EformData
		if err := rows.Scan(&e.FacilityID, &e.EformDataID, &e.DemographicID,
			&e.EformID, &e.FormName, &e.Subject, &e.FormDate, &e.FormData,
			&e.ProviderID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

type eformValueRepoPG struct{ pool *pgxpool.Pool }

func NewEformValueRepoPG(pool *pgxpool.Pool) EformValueRepository {
	return &eformValueRepoPG{pool: pool}
}

func (r *eformValueRepoPG) Upsert(ctx context.Context, e *EformValue) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_eform_value (facility_id, eform_value_id, demographic_id,
			eform_data_id, var_name, var_value)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (facility_id, eform_value_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id,
			eform_data_id=EXCLUDED.eform_data_id, var_name=EXCLUDED.var_name,
			var_value=EXCLUDED.var_value, updated_at=NOW()`,
		e.FacilityID, e.EformValueID, e.DemographicID,
		e.EformDataID, e.VarName, e.VarValue)
	return err
}

func (r *eformValueRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*EformValue, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, eform_value_id, demographic_id, eform_data_id,
			var_name, var_value, created_at, updated_at
		FROM cached_eform_value
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY eform_value_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*EformValue
	for rows.Next() {
		var e EformValue
		if err := rows.Scan(&e.FacilityID, &e.EformValueID, &e.DemographicID,
			&e.EformDataID, &e.VarName, &e.VarValue, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
