package facility

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("facility not found")

type FacilityRepository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id int) (*Facility, error)
	Update(ctx context.Context, f *Facility) error
	List(ctx context.Context, enabledOnly bool, limit, offset int) ([]*Facility, int, error)
	TouchLastConnected(ctx context.Context, id int) error
	SetLastPushDate(ctx context.Context, id int) error
}
