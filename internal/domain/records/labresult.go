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

// LabResult is a cached laboratory result line.
type LabResult struct {
	FacilityID      int        `db:"facility_id" json:"facility_id"`
	LabResultID     int        `db:"lab_result_id" json:"lab_result_id"`
	DemographicID   int        `db:"demographic_id" json:"demographic_id"`
	CollectionDate  *time.Time `db:"collection_date" json:"collection_date,omitempty"`
	Discipline      *string    `db:"discipline" json:"discipline,omitempty"`
	TestName        string     `db:"test_name" json:"test_name"`
	Result          *string    `db:"result" json:"result,omitempty"`
	Units           *string    `db:"units" json:"units,omitempty"`
	ReferenceRange  *string    `db:"reference_range" json:"reference_range,omitempty"`
	AbnormalFlag    *string    `db:"abnormal_flag" json:"abnormal_flag,omitempty"`
	LabType         *string    `db:"lab_type" json:"lab_type,omitempty"`
	AccessionNumber *string    `db:"accession_number" json:"accession_number,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (l *LabResult) Validate() error {
	if l.LabResultID <= 0 {
		return fmt.Errorf("invalid lab result id %d", l.LabResultID)
	}
	if l.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", l.DemographicID)
	}
	if l.TestName == "" {
		return errors.New("test name is required")
	}
	return nil
}

func (l *LabResult) RecordID() string { return strconv.Itoa(l.LabResultID) }

type LabResultRepository interface {
	Upsert(ctx context.Context, l *LabResult) error
	// GetByKey returns the lab result by its composite key, or
	// ErrRecordNotFound.
	GetByKey(ctx context.Context, facilityID, labResultID int) (*LabResult, error)
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*LabResult, error)
}

type labResultRepoPG struct{ pool *pgxpool.Pool }

func NewLabResultRepoPG(pool *pgxpool.Pool) LabResultRepository {
	return &labResultRepoPG{pool: pool}
}

func (r *labResultRepoPG) Upsert(ctx context.Context, l *LabResult) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_lab_result (facility_id, lab_result_id, demographic_id,
			collection_date, discipline, test_name, result, units, reference_range,
			abnormal_flag, lab_type, accession_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (facility_id, lab_result_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id,
			collection_date=EXCLUDED.collection_date, discipline=EXCLUDED.discipline,
			test_name=EXCLUDED.test_name, result=EXCLUDED.result, units=EXCLUDED.units,
			reference_range=EXCLUDED.reference_range,
			abnormal_flag=EXCLUDED.abnormal_flag, lab_type=EXCLUDED.lab_type,
			accession_number=EXCLUDED.accession_number, updated_at=NOW()`,
		l.FacilityID, l.LabResultID, l.DemographicID,
		l.CollectionDate, l.Discipline, l.TestName, l.Result, l.Units, l.ReferenceRange,
		l.AbnormalFlag, l.LabType, l.AccessionNumber)
	return err
}

func (r *labResultRepoPG) GetByKey(ctx context.Context, facilityID, labResultID int) (*LabResult, error) {
	var l LabResult
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT facility_id, lab_result_id, demographic_id, collection_date, discipline,
			test_name, result, units, reference_range, abnormal_flag, lab_type,
			accession_number, created_at, updated_at
		FROM cached_lab_result
		WHERE facility_id=$1 AND lab_result_id=$2`, facilityID, labResultID).
		Scan(&l.FacilityID, &l.LabResultID, &l.DemographicID,
			&l.CollectionDate, &l.Discipline, &l.TestName, &l.Result, &l.Units,
			&l.ReferenceRange, &l.AbnormalFlag, &l.LabType, &l.AccessionNumber,
			&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *labResultRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*LabResult, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, lab_result_id, demographic_id, collection_date, discipline,
			test_name, result, units, reference_range, abnormal_flag, lab_type,
			accession_number, created_at, updated_at
		FROM cached_lab_result
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY collection_date NULLS LAST, lab_result_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LabResult
	for rows.Next() {
		var l LabResult
		if err := rows.Scan(&l.FacilityID, &l.LabResultID, &l.DemographicID,
			&l.CollectionDate, &l.Discipline, &l.TestName, &l.Result, &l.Units,
			&l.ReferenceRange, &l.AbnormalFlag, &l.LabType, &l.AccessionNumber,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}
