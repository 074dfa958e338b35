package consent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emr/integrator/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type consentRepoPG struct{ pool *pgxpool.Pool }

func NewConsentRepoPG(pool *pgxpool.Pool) ConsentRepository {
	return &consentRepoPG{pool: pool}
}

func (r *consentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *consentRepoPG) GetTypeByName(ctx context.Context, name string) (*ConsentType, error) {
	var t ConsentType
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, description FROM consent_type WHERE name = $1`, name).
		Scan(&t.ID, &t.Name, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *consentRepoPG) Create(ctx context.Context, c *Consent, pairs []FacilityConsentPair) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consent (id, facility_id, demographic_id, consent_type_id, status,
			exclude_mental_health_data, expiry)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.FacilityID, c.DemographicID, c.ConsentTypeID, c.Status,
		c.ExcludeMentalHealthData, c.Expiry)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO consent_facility_share (consent_id, remote_facility_id, share_data)
			VALUES ($1,$2,$3)
			ON CONFLICT (consent_id, remote_facility_id) DO UPDATE SET share_data = EXCLUDED.share_data`,
			c.ID, p.RemoteFacilityID, p.ShareData); err != nil {
			return err
		}
	}
	return nil
}

func (r *consentRepoPG) Latest(ctx context.Context, facilityID, demographicID, consentTypeID int) (*Consent, error) {
	var c Consent
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, facility_id, demographic_id, consent_type_id, status,
			exclude_mental_health_data, expiry, created_at
		FROM consent
		WHERE facility_id = $1 AND demographic_id = $2 AND consent_type_id = $3
		ORDER BY created_at DESC
		LIMIT 1`,
		facilityID, demographicID, consentTypeID).
		Scan(&c.ID, &c.FacilityID, &c.DemographicID, &c.ConsentTypeID, &c.Status,
			&c.ExcludeMentalHealthData, &c.Expiry, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *consentRepoPG) PairsForConsent(ctx context.Context, c *Consent) ([]FacilityConsentPair, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT consent_id, remote_facility_id, share_data
		FROM consent_facility_share
		WHERE consent_id = $1
		ORDER BY remote_facility_id`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []FacilityConsentPair
	for rows.Next() {
		var p FacilityConsentPair
		if err := rows.Scan(&p.ConsentID, &p.RemoteFacilityID, &p.ShareData); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
