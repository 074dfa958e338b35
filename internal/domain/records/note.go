package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Note is a cached clinical note. Unlike the other record types it is keyed
// by a UUID, since note ids are not stable integers at the origin facility.
type Note struct {
	FacilityID      int        `db:"facility_id" json:"facility_id"`
	NoteUUID        string     `db:"note_uuid" json:"note_uuid"`
	DemographicID   int        `db:"demographic_id" json:"demographic_id"`
	ProviderID      *string    `db:"provider_id" json:"provider_id,omitempty"`
	SigningProvider *string    `db:"signing_provider" json:"signing_provider,omitempty"`
	ObservationDate *time.Time `db:"observation_date" json:"observation_date,omitempty"`
	UpdateDate      *time.Time `db:"update_date" json:"update_date,omitempty"`
	Role            *string    `db:"role" json:"role,omitempty"`
	EncounterType   *string    `db:"encounter_type" json:"encounter_type,omitempty"`
	Note            string     `db:"note" json:"note"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (n *Note) Validate() error {
	if _, err := uuid.Parse(n.NoteUUID); err != nil {
		return fmt.Errorf("invalid note uuid %q", n.NoteUUID)
	}
	if n.DemographicID <= 0 {
		return fmt.Errorf("invalid demographic id %d", n.DemographicID)
	}
	if n.Note == "" {
		return errors.New("note text is required")
	}
	return nil
}

func (n *Note) RecordID() string { return n.NoteUUID }

type NoteRepository interface {
	Upsert(ctx context.Context, n *Note) error
	ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Note, error)
}

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) Upsert(ctx context.Context, n *Note) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO cached_note (facility_id, note_uuid, demographic_id, provider_id,
			signing_provider, observation_date, update_date, role, encounter_type, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (facility_id, note_uuid) DO UPDATE SET
			demographic_id=EXCLUDED.demographic_id, provider_id=EXCLUDED.provider_id,
			signing_provider=EXCLUDED.signing_provider,
			observation_date=EXCLUDED.observation_date, update_date=EXCLUDED.update_date,
			role=EXCLUDED.role, encounter_type=EXCLUDED.encounter_type,
			note=EXCLUDED.note, updated_at=NOW()`,
		n.FacilityID, n.NoteUUID, n.DemographicID, n.ProviderID,
		n.SigningProvider, n.ObservationDate, n.UpdateDate, n.Role, n.EncounterType, n.Note)
	return err
}

func (r *noteRepoPG) ListByDemographic(ctx context.Context, facilityID, demographicID int) ([]*Note, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT facility_id, note_uuid, demographic_id, provider_id, signing_provider,
			observation_date, update_date, role, encounter_type, note, created_at, updated_at
		FROM cached_note
		WHERE facility_id=$1 AND demographic_id=$2
		ORDER BY observation_date NULLS LAST, note_uuid`, facilityID, demographicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.FacilityID, &n.NoteUUID, &n.DemographicID, &n.ProviderID,
			&n.SigningProvider, &n.ObservationDate, &n.UpdateDate, &n.Role,
			&n.EncounterType, &n.Note, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}
