// Package store persists library records and reconciliation sessions in a
// Badger key-value database.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// EventEmitter is the interface for broadcasting store changes.
// Store uses this to notify connected clients without depending on SSE
// implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// SearchIndexer keeps the local search index in sync with committed records.
// Index updates are best-effort; a failed index write never fails the commit.
type SearchIndexer interface {
	IndexVideo(ctx context.Context, video *domain.Video) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexVideo is a no-op.
func (NoopSearchIndexer) IndexVideo(context.Context, *domain.Video) error { return nil }

// DeleteVideo is a no-op.
func (NoopSearchIndexer) DeleteVideo(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	emitter EventEmitter

	// Search indexer, set after construction to avoid a circular dependency
	// between store and search setup.
	indexer SearchIndexer

	// Sessions holds durable reconciliation batches.
	Sessions *Entity[domain.Session]
}

// New creates a new Store at the given database path.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sessions must survive the process being killed
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %s: %w", path, err)
	}

	if emitter == nil {
		emitter = NoopEmitter{}
	}

	s := &Store{
		db:      db,
		logger:  logger,
		emitter: emitter,
		indexer: NoopSearchIndexer{},
	}
	s.Sessions = NewEntity[domain.Session](s, "session:")

	return s, nil
}

// SetSearchIndexer wires the search index after store creation.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer != nil {
		s.indexer = indexer
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// exists reports whether a key is present.
func (s *Store) exists(key []byte) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return found, err
}
