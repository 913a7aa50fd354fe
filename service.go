package songstore

import (
	"context"

	"github.com/google/uuid"
)

// IDFunc generates unique song identifiers, for dependency injection.
type IDFunc func() string

// DefaultIDFunc returns a random canonical UUID string. Collisions are
// treated as negligible and are not checked against existing keys.
func DefaultIDFunc() string {
	return uuid.NewString()
}

// CreateSongInput carries the caller-supplied fields for a new song.
// Plays may be omitted and defaults to zero. Field constraints are
// enforced at the transport boundary before this input is built.
type CreateSongInput struct {
	Name  string
	Path  string
	Plays *int
}

// Service orchestrates song operations over a Store. It holds no state
// of its own beyond its dependencies: every operation round-trips to
// the table, so there is no staleness between requests.
type Service struct {
	store *Store
	newID IDFunc
}

// NewService returns a Service over store.
func NewService(store *Store, opts ...func(*Service)) *Service {
	svc := &Service{
		store: store,
		newID: DefaultIDFunc,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithIDFunc overrides how new song identifiers are generated.
func WithIDFunc(fn IDFunc) func(*Service) {
	return func(s *Service) { s.newID = fn }
}

// List returns every stored song. An empty table is a valid, non-error
// result.
func (s *Service) List(ctx context.Context) ([]Song, error) {
	return s.store.FetchAll(ctx)
}

// Create generates a fresh id for the input, defaults plays to zero if
// unspecified, stores the full item and returns it.
func (s *Service) Create(ctx context.Context, in CreateSongInput) (Song, error) {
	song := Song{
		ID:   s.newID(),
		Name: in.Name,
		Path: in.Path,
	}
	if in.Plays != nil {
		song.Plays = *in.Plays
	}

	if err := s.store.Put(ctx, song); err != nil {
		return Song{}, err
	}
	return song, nil
}

// GetByID returns the song stored under id, or ErrSongNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (Song, error) {
	return s.store.FetchByKey(ctx, id)
}

// Update applies patch to the song stored under id and returns the
// result. Existence is confirmed first so an absent key short-circuits
// to ErrSongNotFound without touching the update path. An empty patch
// returns the existing song unchanged without issuing a write.
//
// The existence check and the write are separate requests; a concurrent
// delete between them surfaces as ErrSongNotFound from the update.
func (s *Service) Update(ctx context.Context, id string, patch SongPatch) (Song, error) {
	existing, err := s.store.FetchByKey(ctx, id)
	if err != nil {
		return Song{}, err
	}

	if patch.IsZero() {
		return existing, nil
	}

	return s.store.PartialUpdate(ctx, id, patch)
}

// Delete removes the song stored under id and returns it as it existed
// before deletion, or ErrSongNotFound.
func (s *Service) Delete(ctx context.Context, id string) (Song, error) {
	return s.store.DeleteByKey(ctx, id)
}
