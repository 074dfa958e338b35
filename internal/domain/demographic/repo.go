package demographic

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("demographic not found")

type DemographicRepository interface {
	// Upsert replaces the cached demographic wholesale and stamps its push
	// date. Last write wins.
	Upsert(ctx context.Context, d *Demographic) error
	GetByKey(ctx context.Context, facilityID, demographicID int) (*Demographic, error)
	// FindExact queries by every provided attribute at once, capped at
	// limit rows.
	FindExact(ctx context.Context, p *MatchParameters, limit int) ([]*Demographic, error)
	// FindByLastNameAndDOB is the permissive fuzzy query. Nil date parts
	// are unconstrained.
	FindByLastNameAndDOB(ctx context.Context, lastName string, year, month, day *int) ([]*Demographic, error)
	// PushedAfter returns demographics whose push date is strictly after t.
	PushedAfter(ctx context.Context, t time.Time) ([]*Demographic, error)
}
