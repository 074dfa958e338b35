package merge

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

type mergeRepoPG struct{ pool *pgxpool.Pool }

func NewMergeRepoPG(pool *pgxpool.Pool) MergeRepository {
	return &mergeRepoPG{pool: pool}
}

func (r *mergeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const mergeCols = `id, facility_id, child_id, parent_id, deleted,
	last_update_user, last_update_date, created_at`

func scanMerge(row pgx.Row) (*DemographicMerged, error) {
	var m DemographicMerged
	err := row.Scan(&m.ID, &m.FacilityID, &m.ChildID, &m.ParentID, &m.Deleted,
		&m.LastUpdateUser, &m.LastUpdateDate, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSuchMerge
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mergeRepoPG) Create(ctx context.Context, m *DemographicMerged) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO demographic_merged (facility_id, child_id, parent_id, deleted,
			last_update_user, last_update_date)
		VALUES ($1,$2,$3,FALSE,$4,NOW())
		RETURNING id, last_update_date, created_at`,
		m.FacilityID, m.ChildID, m.ParentID, m.LastUpdateUser).
		Scan(&m.ID, &m.LastUpdateDate, &m.CreatedAt)
}

func (r *mergeRepoPG) FindActive(ctx context.Context, facilityID, childID, parentID int) (*DemographicMerged, error) {
	return scanMerge(r.conn(ctx).QueryRow(ctx, `
		SELECT `+mergeCols+` FROM demographic_merged
		WHERE facility_id=$1 AND child_id=$2 AND parent_id=$3 AND NOT deleted`,
		facilityID, childID, parentID))
}

func (r *mergeRepoPG) ActiveByChild(ctx context.Context, facilityID, childID int) (*DemographicMerged, error) {
	m, err := scanMerge(r.conn(ctx).QueryRow(ctx, `
		SELECT `+mergeCols+` FROM demographic_merged
		WHERE facility_id=$1 AND child_id=$2 AND NOT deleted`,
		facilityID, childID))
	if errors.Is(err, ErrNoSuchMerge) {
		return nil, nil
	}
	return m, err
}

func (r *mergeRepoPG) ActiveByParent(ctx context.Context, facilityID, parentID int) ([]*DemographicMerged, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+mergeCols+` FROM demographic_merged
		WHERE facility_id=$1 AND parent_id=$2 AND NOT deleted
		ORDER BY child_id`, facilityID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DemographicMerged
	for rows.Next() {
		m, err := scanMerge(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *mergeRepoPG) MarkDeleted(ctx context.Context, id int, user string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE demographic_merged
		SET deleted=TRUE, last_update_user=$2, last_update_date=NOW()
		WHERE id=$1 AND NOT deleted`, id, user)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSuchMerge
	}
	return nil
}
