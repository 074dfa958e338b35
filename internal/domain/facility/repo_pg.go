package facility

import (
	"context"
	"errors"

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

type facilityRepoPG struct{ pool *pgxpool.Pool }

func NewFacilityRepoPG(pool *pgxpool.Pool) FacilityRepository {
	return &facilityRepoPG{pool: pool}
}

func (r *facilityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const facCols = `id, name, description, contact_email, contact_phone, url,
	enabled, allows_integrated_referrals, last_connected, last_push_date,
	created_at, updated_at`

func (r *facilityRepoPG) scanRow(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.ContactEmail, &f.ContactPhone, &f.URL,
		&f.Enabled, &f.AllowsIntegratedReferrals, &f.LastConnected, &f.LastPushDate,
		&f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *facilityRepoPG) Create(ctx context.Context, f *Facility) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO facility (name, description, contact_email, contact_phone, url,
			enabled, allows_integrated_referrals)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		f.Name, f.Description, f.ContactEmail, f.ContactPhone, f.URL,
		f.Enabled, f.AllowsIntegratedReferrals).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (r *facilityRepoPG) GetByID(ctx context.Context, id int) (*Facility, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+facCols+` FROM facility WHERE id = $1`, id))
}

func (r *facilityRepoPG) Update(ctx context.Context, f *Facility) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE facility SET name=$2, description=$3, contact_email=$4, contact_phone=$5,
			url=$6, enabled=$7, allows_integrated_referrals=$8, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.Name, f.Description, f.ContactEmail, f.ContactPhone,
		f.URL, f.Enabled, f.AllowsIntegratedReferrals)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *facilityRepoPG) List(ctx context.Context, enabledOnly bool, limit, offset int) ([]*Facility, int, error) {
	where := ``
	if enabledOnly {
		where = ` WHERE enabled`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facility`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+facCols+` FROM facility`+where+` ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Facility
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

func (r *facilityRepoPG) TouchLastConnected(ctx context.Context, id int) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE facility SET last_connected = NOW() WHERE id = $1`, id)
	return err
}

func (r *facilityRepoPG) SetLastPushDate(ctx context.Context, id int) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE facility SET last_push_date = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
