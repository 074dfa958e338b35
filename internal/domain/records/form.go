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

// Form is a cached intake or encounter form snapshot. FormData carries the
// serialized form payload as the origin facility produced it.
type Form struct {
	FacilityID    int        `db:"facility_id" json:"facility_id"`
	FormID        int        `db:"form_id" json:"form_id"`
	DemographicID int        `db:"demographic_id" json:"demographic_id"`
	FormName      string     `db:"form_name" json:"form_name"`
	FormData      []byte     `db:"form_data" json:"form_data,omitempty"`
	ProviderID    *string    `db:"provider_id" json:"provider_id,omitempty"`
	CreateDate    *time.Time `db:"create_date" json:"create_date,omitempty"`
	EditDate      *time.Time `db:"edit_date" json:"edit_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (f *Form) Validate() error {
	if f.FormID <= 0 {
		return fmt.Errorf("invalid form id %d", f.FormID)
	}
	if f.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", f.DemographicID)
	}
	if f.FormName == "" {
		return errors.New("form name is required")
	}
	return nil
}

func (f *Form) RecordID() string { return strconv.Itoa(f.FormID) }

type FormRepository interface {
	Upsert(ctx context.Context, f *Form) error
	// GetByKey returns the form by its composite key, or ErrRecordNotFound.
	GetByKey(ctx context.Context, facilityID, formID int) (*Form, error)
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Form, error)
}

type formRepoPG struct{ pool *pgxpool.Pool }

func NewFormRepoPG(pool *pgxpool.Pool) FormRepository {
	return &formRepoPG{pool: pool}
}

func (r *formRepoPG) Upsert(ctx context.Context, f *Form) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_form (facility_id, form_id, demographic_id, form_name,
			form_data, provider_id, create_date, edit_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (facility_id, form_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, form_name=EXCLUDED.form_name,
			form_data=EXCLUDED.form_data, provider_id=EXCLUDED.provider_id,
			create_date=EXCLUDED.create_date, edit_date=EXCLUDED.edit_date,
			updated_at=NOW()`,
		f.FacilityID, f.FormID, f.DemographicID, f.FormName,
		f.FormData, f.ProviderID, f.CreateDate, f.EditDate)
	return err
}

func (r *formRepoPG) GetByKey(ctx context.Context, facilityID, formID int) (*Form, error) {
	var f Form
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT facility_id, form_id, demographic_id, form_name, form_data,
			provider_id, create_date, edit_date, created_at, updated_at
		FROM cached_form
		WHERE facility_id=$1 AND form_id=$2`, facilityID, formID).
		Scan(&f.FacilityID, &f.FormID, &f.DemographicID, &f.FormName,
			&f.FormData, &f.ProviderID, &f.CreateDate, &f.EditDate,
			&f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *formRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Form, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, form_id, demographic_id, form_name, form_data,
			provider_id, create_date, edit_date, created_at, updated_at
		FROM cached_form
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY form_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Form
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.FacilityID, &f.FormID, &f.DemographicID, &f.FormName,
			&f.FormData, &f.ProviderID, &f.CreateDate, &f.EditDate,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}
