package demographic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

type demographicRepoPG struct{ pool *pgxpool.Pool }

func NewDemographicRepoPG(pool *pgxpool.Pool) DemographicRepository {
	return &demographicRepoPG{pool: pool}
}

func (r *demographicRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const demoCols = `facility_id, demographic_id, provider_id, first_name, last_name,
	birth_date, gender, hin, hin_type, hin_version, hin_valid_start, hin_valid_end,
	sin, province, city, street_address, phone1, phone2, photo, photo_update_date,
	last_update_user, last_update_date, created_at, updated_at`

// prefixCols qualifies every column in a comma-separated list with a table
// alias, for joined queries.
func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanDemographic(row pgx.Row) (*Demographic, error) {
	var d Demographic
	err := row.Scan(&d.FacilityID, &d.DemographicID, &d.ProviderID, &d.FirstName, &d.LastName,
		&d.BirthDate, &d.Gender, &d.HIN, &d.HINType, &d.HINVersion, &d.HINValidStart, &d.HINValidEnd,
		&d.SIN, &d.Province, &d.City, &d.StreetAddress, &d.Phone1, &d.Phone2, &d.Photo, &d.PhotoUpdateDate,
		&d.LastUpdateUser, &d.LastUpdateDate, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDemographics(rows pgx.Rows) ([]*Demographic, error) {
	defer rows.Close()
	var items []*Demographic
	for rows.Next() {
		d, err := scanDemographic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *demographicRepoPG) Upsert(ctx context.Context, d *Demographic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO demographic (facility_id, demographic_id, provider_id, first_name, last_name,
			birth_date, gender, hin, hin_type, hin_version, hin_valid_start, hin_valid_end,
			sin, province, city, street_address, phone1, phone2, photo, photo_update_date,
			last_update_user, last_update_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		ON CONFLICT (facility_id, demographic_id) DO UPDATE SET
			provider_id=EXCLUDED.provider_id, first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name, birth_date=EXCLUDED.birth_date,
			gender=EXCLUDED.gender, hin=EXCLUDED.hin, hin_type=EXCLUDED.hin_type,
			hin_version=EXCLUDED.hin_version, hin_valid_start=EXCLUDED.hin_valid_start,
			hin_valid_end=EXCLUDED.hin_valid_end, sin=EXCLUDED.sin,
			province=EXCLUDED.province, city=EXCLUDED.city,
			street_address=EXCLUDED.street_address, phone1=EXCLUDED.phone1,
			phone2=EXCLUDED.phone2, photo=EXCLUDED.photo,
			photo_update_date=EXCLUDED.photo_update_date,
			last_update_user=EXCLUDED.last_update_user,
			last_update_date=EXCLUDED.last_update_date,
			updated_at=NOW()`,
		d.FacilityID, d.DemographicID, d.ProviderID, d.FirstName, d.LastName,
		d.BirthDate, d.Gender, d.HIN, d.HINType, d.HINVersion, d.HINValidStart, d.HINValidEnd,
		d.SIN, d.Province, d.City, d.StreetAddress, d.Phone1, d.Phone2, d.Photo, d.PhotoUpdateDate,
		d.LastUpdateUser, d.LastUpdateDate)
	if err != nil {
		return err
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO demographic_push_date (facility_id, demographic_id, last_push_date)
		VALUES ($1,$2,NOW())
		ON CONFLICT (facility_id, demographic_id) DO UPDATE SET last_push_date = NOW()`,
		d.FacilityID, d.DemographicID)
	return err
}

func (r *demographicRepoPG) GetByKey(ctx context.Context, facilityID, demographicID int) (*Demographic, error) {
	return scanDemographic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+demoCols+` FROM demographic WHERE facility_id=$1 AND demographic_id=$2`,
		facilityID, demographicID))
}

func (r *demographicRepoPG) FindExact(ctx context.Context, p *MatchParameters, limit int) ([]*Demographic, error) {
	query := `SELECT ` + demoCols + ` FROM demographic WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, val interface{}) {
		query += fmt.Sprintf(clause, idx)
		args = append(args, val)
		idx++
	}

	if p.HIN != "" {
		add(` AND hin = $%d`, p.HIN)
	}
	if p.FirstName != "" {
		add(` AND LOWER(first_name) = LOWER($%d)`, p.FirstName)
	}
	if p.LastName != "" {
		add(` AND LOWER(last_name) = LOWER($%d)`, p.LastName)
	}
	if p.Gender != "" {
		add(` AND gender = $%d`, string(p.Gender))
	}
	if p.City != "" {
		add(` AND LOWER(city) = LOWER($%d)`, p.City)
	}
	if p.Province != "" {
		add(` AND LOWER(province) = LOWER($%d)`, p.Province)
	}
	if p.Phone != "" {
		query += fmt.Sprintf(` AND (phone1 = $%d OR phone2 = $%d)`, idx, idx)
		args = append(args, p.Phone)
		idx++
	}
	if y, m, d, ok := p.BirthDateParts(); ok {
		if y != nil {
			add(` AND EXTRACT(YEAR FROM birth_date) = $%d`, *y)
		}
		if m != nil {
			add(` AND EXTRACT(MONTH FROM birth_date) = $%d`, *m)
		}
		if d != nil {
			add(` AND EXTRACT(DAY FROM birth_date) = $%d`, *d)
		}
	}

	query += fmt.Sprintf(` LIMIT $%d`, idx)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanDemographics(rows)
}

func (r *demographicRepoPG) FindByLastNameAndDOB(ctx context.Context, lastName string, year, month, day *int) ([]*Demographic, error) {
	query := `SELECT ` + demoCols + ` FROM demographic WHERE LOWER(last_name) = LOWER($1)`
	args := []interface{}{lastName}
	idx := 2

	add := func(clause string, val interface{}) {
		query += fmt.Sprintf(clause, idx)
		args = append(args, val)
		idx++
	}
	if year != nil {
		add(` AND EXTRACT(YEAR FROM birth_date) = $%d`, *year)
	}
	if month != nil {
		add(` AND EXTRACT(MONTH FROM birth_date) = $%d`, *month)
	}
	if day != nil {
		add(` AND EXTRACT(DAY FROM birth_date) = $%d`, *day)
	}
	query += ` ORDER BY facility_id, demographic_id`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanDemographics(rows)
}

func (r *demographicRepoPG) PushedAfter(ctx context.Context, t time.Time) ([]*Demographic, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prefixCols("d", demoCols)+` FROM demographic d
		JOIN demographic_push_date pd
		  ON pd.facility_id = d.facility_id AND pd.demographic_id = d.demographic_id
		WHERE pd.last_push_date > $1
		ORDER BY pd.last_push_date`, t)
	if err != nil {
		return nil, err
	}
	return scanDemographics(rows)
}
