package sink

import "context"

// Saver persists artifacts. *store.Store implements it.
type Saver interface {
	SaveClip(ctx context.Context, a Artifact) error
}

// Store hands artifacts to a Saver.
type Store struct {
	saver Saver
}

// NewStore creates a Store sink.
func NewStore(saver Saver) *Store {
	return &Store{saver: saver}
}

func (s *Store) Send(ctx context.Context, a Artifact) error {
	return s.saver.SaveClip(ctx, a)
}

// Close does not close the underlying store, which its owner closes.
func (s *Store) Close() error { return nil }

func (s *Store) Name() string { return "store" }
