package linkage

import (
	"context"
	"fmt"
	"sync"
)

const DefaultMaxHops = 6

type Service struct {
	repo    LinkRepository
	maxHops int

	// Serializes link/unlink on the graph so a racing pair cannot create
	// duplicate active links between the existence check and the insert.
	mu sync.Mutex
}

func NewService(repo LinkRepository, maxHops int) *Service {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Service{repo: repo, maxHops: maxHops}
}

// Link asserts that local and remote are the same patient. Re-linking an
// already-linked pair is a no-op and returns the existing link.
func (s *Service) Link(ctx context.Context, creatorProviderID string, local, remote Node) (*DemographicLink, error) {
	if creatorProviderID == "" {
		return nil, fmt.Errorf("creator provider id is required")
	}
	if !local.Valid() || !remote.Valid() {
		return nil, fmt.Errorf("both link endpoints require a facility id and demographic id")
	}
	if local == remote {
		return nil, fmt.Errorf("cannot link a demographic to itself")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.FindActivePair(ctx, local, remote)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	l := &DemographicLink{
		CreatorProviderID:   creatorProviderID,
		LinkFacilityID:      local.FacilityID,
		LinkDemographicID:   local.DemographicID,
		RemoteFacilityID:    remote.FacilityID,
		RemoteDemographicID: remote.DemographicID,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Unlink deactivates the active link(s) between local and remote. Unlinking a
// pair with no active link is an error, not a silent success.
func (s *Service) Unlink(ctx context.Context, local, remote Node) error {
	if !local.Valid() || !remote.Valid() {
		return fmt.Errorf("both unlink endpoints require a facility id and demographic id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.repo.FindActivePair(ctx, local, remote)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return ErrNoActiveLink
	}
	for _, l := range matches {
		if err := s.repo.Deactivate(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// DirectLinks returns the one-hop neighbors of n.
func (s *Service) DirectLinks(ctx context.Context, n Node) ([]Node, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("node requires a facility id and demographic id")
	}
	links, err := s.repo.ActiveByNode(ctx, n)
	if err != nil {
		return nil, err
	}

	seen := map[Node]bool{n: true}
	var neighbors []Node
	for _, l := range links {
		other, ok := l.Other(n)
		if !ok || seen[other] {
			continue
		}
		seen[other] = true
		neighbors = append(neighbors, other)
	}
	return neighbors, nil
}

// AllLinked returns the transitive closure over the active-link graph
// starting from n, excluding n itself. Breadth-first with a visited set, so
// cyclic graphs terminate; depth is bounded by the configured max hop count.
func (s *Service) AllLinked(ctx context.Context, n Node) ([]Node, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("node requires a facility id and demographic id")
	}

	visited := map[Node]bool{n: true}
	var closure []Node
	frontier := []Node{n}

	for hop := 0; hop < s.maxHops && len(frontier) > 0; hop++ {
		var next []Node
		for _, cur := range frontier {
			links, err := s.repo.ActiveByNode(ctx, cur)
			if err != nil {
				return nil, err
			}
			for _, l := range links {
				other, ok := l.Other(cur)
				if !ok || visited[other] {
					continue
				}
				visited[other] = true
				closure = append(closure, other)
				next = append(next, other)
			}
		}
		frontier = next
	}

	return closure, nil
}

// History returns every link assertion ever made for n, including
// deactivated ones, newest first.
func (s *Service) History(ctx context.Context, n Node) ([]*DemographicLink, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("node requires a facility id and demographic id")
	}
	return s.repo.HistoryByNode(ctx, n)
}
