package linkage

import (
	"context"

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

type linkRepoPG struct{ pool *pgxpool.Pool }

func NewLinkRepoPG(pool *pgxpool.Pool) LinkRepository {
	return &linkRepoPG{pool: pool}
}

func (r *linkRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const lnkCols = `id, creator_provider_id, link_facility_id, link_demographic_id,
	remote_facility_id, remote_demographic_id, active, created_at, updated_at`

func scanLinks(rows pgx.Rows) ([]*DemographicLink, error) {
	defer rows.Close()
	var items []*DemographicLink
	for rows.Next() {
		var l DemographicLink
		if err := rows.Scan(&l.ID, &l.CreatorProviderID, &l.LinkFacilityID, &l.LinkDemographicID,
			&l.RemoteFacilityID, &l.RemoteDemographicID, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

func (r *linkRepoPG) Create(ctx context.Context, l *DemographicLink) error {
	l.ID = uuid.New()
	l.Active = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO demographic_link (id, creator_provider_id, link_facility_id,
			link_demographic_id, remote_facility_id, remote_demographic_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,true)`,
		l.ID, l.CreatorProviderID, l.LinkFacilityID, l.LinkDemographicID,
		l.RemoteFacilityID, l.RemoteDemographicID)
	return err
}

func (r *linkRepoPG) FindActivePair(ctx context.Context, a, b Node) ([]*DemographicLink, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lnkCols+` FROM demographic_link
		WHERE active
		  AND ((link_facility_id=$1 AND link_demographic_id=$2 AND remote_facility_id=$3 AND remote_demographic_id=$4)
		    OR (link_facility_id=$3 AND link_demographic_id=$4 AND remote_facility_id=$1 AND remote_demographic_id=$2))`,
		a.FacilityID, a.DemographicID, b.FacilityID, b.DemographicID)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (r *linkRepoPG) ActiveByNode(ctx context.Context, n Node) ([]*DemographicLink, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lnkCols+` FROM demographic_link
		WHERE active
		  AND ((link_facility_id=$1 AND link_demographic_id=$2)
		    OR (remote_facility_id=$1 AND remote_demographic_id=$2))
		ORDER BY created_at`,
		n.FacilityID, n.DemographicID)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (r *linkRepoPG) Deactivate(ctx context.Context, l *DemographicLink) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE demographic_link SET active=false, updated_at=NOW() WHERE id=$1 AND active`, l.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveLink
	}
	l.Active = false
	return nil
}

func (r *linkRepoPG) HistoryByNode(ctx context.Context, n Node) ([]*DemographicLink, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lnkCols+` FROM demographic_link
		WHERE (link_facility_id=$1 AND link_demographic_id=$2)
		   OR (remote_facility_id=$1 AND remote_demographic_id=$2)
		ORDER BY created_at DESC`,
		n.FacilityID, n.DemographicID)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}
