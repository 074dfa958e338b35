package linkage

import (
	"context"
	"errors"
)

// ErrNoActiveLink is returned by unlink when no active link matches the pair.
var ErrNoActiveLink = errors.New("no active link for pair")

type LinkRepository interface {
	Create(ctx context.Context, l *DemographicLink) error
	// FindActivePair returns active links matching the pair in either
	// stored direction.
	FindActivePair(ctx context.Context, a, b Node) ([]*DemographicLink, error)
	// ActiveByNode returns active links where n is on either side.
	ActiveByNode(ctx context.Context, n Node) ([]*DemographicLink, error)
	Deactivate(ctx context.Context, l *DemographicLink) error
	// HistoryByNode returns all links for n, active or not, newest first.
	HistoryByNode(ctx context.Context, n Node) ([]*DemographicLink, error)
}
