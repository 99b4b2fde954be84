package file

import (
	"context"
	"path/filepath"
	"sync"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/repository"

	"github.com/pkg/errors"
)

const spotsFile = "spots.json"

// SpotRepository stores the device-uploaded spot snapshot as one JSON
// document. The sync layer that produces the snapshot is an external
// collaborator; this repository only has to hand back the latest upload.
type SpotRepository struct {
	path string

	mu    sync.Mutex
	spots []*entity.Spot
}

// NewSpotRepository loads (or initializes) the spot snapshot from the state
// directory.
func NewSpotRepository(dir string) (repository.SpotRepository, error) {
	repo := &SpotRepository{
		path:  filepath.Join(dir, spotsFile),
		spots: []*entity.Spot{},
	}
	if err := loadJSON(repo.path, &repo.spots); err != nil {
		return nil, errors.Wrap(err, "load spot snapshot")
	}

	return repo, nil
}

// Snapshot returns a copy of the current spot list.
func (r *SpotRepository) Snapshot(_ context.Context) ([]*entity.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Spot, len(r.spots))
	for i, spot := range r.spots {
		copied := *spot
		out[i] = &copied
	}

	return out, nil
}

// ReplaceSnapshot atomically replaces the stored spot list and flushes.
func (r *SpotRepository) ReplaceSnapshot(_ context.Context, spots []*entity.Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spots = make([]*entity.Spot, len(spots))
	for i, spot := range spots {
		copied := *spot
		r.spots[i] = &copied
	}

	return writeJSON(r.path, r.spots)
}
