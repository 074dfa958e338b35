package facility

import (
	"context"
	"fmt"
)

type Service struct {
	repo FacilityRepository
}

func NewService(repo FacilityRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, f *Facility) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Create(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int) (*Facility, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, f *Facility) error {
	if f.ID <= 0 {
		return fmt.Errorf("facility id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Update(ctx, f)
}

func (s *Service) List(ctx context.Context, enabledOnly bool, limit, offset int) ([]*Facility, int, error) {
	return s.repo.List(ctx, enabledOnly, limit, offset)
}

// TouchLastConnected stamps the facility's last successful connection time.
// Called for every authenticated request; errors are not fatal to the request.
func (s *Service) TouchLastConnected(ctx context.Context, id int) error {
	return s.repo.TouchLastConnected(ctx, id)
}

// SetLastPushDate records "this facility has received everything up to now";
// the next incremental pull starts from this checkpoint.
func (s *Service) SetLastPushDate(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("facility id is required")
	}
	return s.repo.SetLastPushDate(ctx, id)
}
