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

var ErrDocumentNotFound = errors.New("document not found")

// Document is a cached document's metadata. The binary contents live in a
// separate table and are fetched on demand, never with the listing.
type Document struct {
	FacilityID      int        `db:"facility_id" json:"facility_id"`
	DocumentID      int        `db:"document_id" json:"document_id"`
	DemographicID   int        `db:"demographic_id" json:"demographic_id"`
	DocType         *string    `db:"doc_type" json:"doc_type,omitempty"`
	Description     string     `db:"description" json:"description"`
	Filename        *string    `db:"filename" json:"filename,omitempty"`
	ContentType     *string    `db:"content_type" json:"content_type,omitempty"`
	ObservationDate *time.Time `db:"observation_date" json:"observation_date,omitempty"`
	UpdateDate      *time.Time `db:"update_date" json:"update_date,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (d *Document) Validate() error {
	if d.DocumentID <= 0 {
		return fmt.Errorf("invalid document id %d", d.DocumentID)
	}
	if d.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", d.DemographicID)
	}
	if d.Description == "" {
		return errors.New("description is required")
	}
	return nil
}

func (d *Document) RecordID() string { return strconv.Itoa(d.DocumentID) }

type DocumentRepository interface {
	Upsert(ctx context.Context, d *Document) error
	GetByKey(ctx context.Context, facilityID, documentID int) (*Document, error)
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Document, error)
	// DeleteByIDs removes the listed documents, contents included. Ids with
	// no cached row are skipped, not errors.
	DeleteByIDs(ctx context.Context, facilityID int, documentIDs []int) error
	SetContents(ctx context.Context, facilityID, documentID int, contents []byte) error
	GetContents(ctx context.Context, facilityID, documentID int) ([]byte, error)
}

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepoPG{pool: pool}
}

const docCols = `facility_id, document_id, demographic_id, doc_type, description,
	filename, content_type, observation_date, update_date, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.FacilityID, &d.DocumentID, &d.DemographicID, &d.DocType,
		&d.Description, &d.Filename, &d.ContentType, &d.ObservationDate, &d.UpdateDate,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *documentRepoPG) Upsert(ctx context.Context, d *Document) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_document (facility_id, document_id, demographic_id, doc_type,
			description, filename, content_type, observation_date, update_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (facility_id, document_id) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, doc_type=EXCLUDED.doc_type,
			description=EXCLUDED.description, filename=EXCLUDED.filename,
			content_type=EXCLUDED.content_type,
			observation_date=EXCLUDED.observation_date,
			update_date=EXCLUDED.update_date, updated_at=NOW()`,
		d.FacilityID, d.DocumentID, d.DemographicID, d.DocType,
		d.Description, d.Filename, d.ContentType, d.ObservationDate, d.UpdateDate)
	return err
}

func (r *documentRepoPG) GetByKey(ctx context.Context, facilityID, documentID int) (*Document, error) {
	return scanDocument(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+docCols+` FROM cached_document WHERE facility_id=$1 AND document_id=$2`,
		facilityID, documentID))
}

func (r *documentRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Document, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+docCols+` FROM cached_document
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY document_id`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *documentRepoPG) DeleteByIDs(ctx context.Context, facilityID int, documentIDs []int) error {
	if len(documentIDs) == 0 {
		return nil
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM cached_document_contents WHERE facility_id=$1 AND document_id = ANY($2)`,
		facilityID, documentIDs)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM cached_document WHERE facility_id=$1 AND document_id = ANY($2)`,
		facilityID, documentIDs)
	return err
}

func (r *documentRepoPG) SetContents(ctx context.Context, facilityID, documentID int, contents []byte) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_document_contents (facility_id, document_id, contents)
		VALUES ($1,$2,$3)
		ON CONFLICT (facility_id, document_id) DO UPDATE SET
			contents=EXCLUDED.contents, updated_at=NOW()`,
		facilityID, documentID, contents)
	return err
}

func (r *documentRepoPG) GetContents(ctx context.Context, facilityID, documentID int) ([]byte, error) {
	var contents []byte
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT contents FROM cached_document_contents WHERE facility_id=$1 AND document_id=$2`,
		facilityID, documentID).Scan(&contents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return contents, nil
}
