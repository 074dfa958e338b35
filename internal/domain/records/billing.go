package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BillingItem is a cached billed service line.
type BillingItem struct {
	FacilityID    int        `db:"facility_id" json:"facility_id"`
	BillingItemID int        `db:"billing_item_id" json:"billing_item_id"`
	DemographicID int        `db:"demographic_id" json:"demographic_id"`
	ServiceCode   string     `db:"service_code" json:"service_code"`
	ServiceDate   *time.Time `db:"service_date" json:"service_date,omitempty"`
	DiagnosisCode *string    `db:"diagnosis_code" json:"diagnosis_code,omitempty"`
	ProviderID    *string    `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (b *BillingItem) Validate() error {
	if b.BillingItemID <= 0 {
		return fmt.Errorf("invalid billing item id %d", b.BillingItemID)
	}
	if b.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", b.DemographicID)
	}
	if b.ServiceCode == "" {
		return errors.New("service code is required")
	}
	return nil
}

func (b *BillingItem) RecordID() string { return strconv.Itoa(b.BillingItemID) }

type BillingItemRepository interface {
	Upsert(ctx context.Context, b *BillingItem) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*BillingItem, error)
}

type billingItemRepoPG struct{ pool *pgxpool.Pool }

func NewBillingItemRepoPG(pool *pgxpool.Pool) BillingItemRepository {
	return &billingItemRepoPG{pool: pool}
}

func (r *billingItemRepoPG) Upsert(ctx context.Context, b *BillingItem) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_billing_item (facility_id, billing_item_id, demographic_id,
			service_code, service_date, diagnosis_code, provider_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (facility_id, billing_item_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id,
			service_code=EXCLUDED.service_code, service_date=EXCLUDED.service_date,
			diagnosis_code=EXCLUDED.diagnosis_code, provider_id=EXCLUDED.provider_id,
			updated_at=NOW()`,
		b.FacilityID, b.BillingItemID, b.DemographicID,
		b.ServiceCode, b.ServiceDate, b.DiagnosisCode, b.ProviderID)
	return err
}

func (r *billingItemRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*BillingItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, billing_item_id, demographic_id, service_code,
			service_date, diagnosis_code, provider_id, created_at, updated_at
		FROM cached_billing_item
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY service_date NULLS LAST, billing_item_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BillingItem
	for rows.Next() {
		var b BillingItem
		if err := rows.Scan(&b.FacilityID, &b.BillingItemID, &b.DemographicID,
			&b.ServiceCode, &b.ServiceDate, &b.DiagnosisCode, &b.ProviderID,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &b)
	}
	return items, rows.Err()
}
