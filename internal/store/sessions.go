package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// Keys live outside the session entity prefix so the entity iterator never
// confuses them with session records.
const (
	pendingSessionKey     = "reconcile:pending"
	sessionProgressPrefix = "reconcile:progress:"
)

// SaveSession persists the pending entries of a batch, creating or replacing
// the stored session. Order is preserved.
func (s *Store) SaveSession(ctx context.Context, sessionID string, entries []domain.SessionEntry) error {
	now := time.Now()

	existing, err := s.Sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	session := &domain.Session{
		ID:        sessionID,
		Entries:   entries,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		session.CreatedAt = existing.CreatedAt
		return s.Sessions.Update(ctx, sessionID, session)
	}
	return s.Sessions.Create(ctx, sessionID, session)
}

// LoadSession returns the pending entries for a session, in saved order.
// A missing or unreadable session is an empty one: resumption must never fail
// because of what a dying process managed to write.
func (s *Store) LoadSession(ctx context.Context, sessionID string) []domain.SessionEntry {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && s.logger != nil {
			s.logger.Warn("session unreadable, treating as empty",
				"session_id", sessionID,
				"error", err,
			)
		}
		return nil
	}
	return session.Entries
}

// RemoveSessionEntries removes resolved entries (by source reference) from a
// session. When the last entry goes, the session and its progress snapshot
// are deleted and the pending pointer is cleared.
func (s *Store) RemoveSessionEntries(ctx context.Context, sessionID string, resolvedRefs []string) error {
	session, err := s.Sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	resolved := make(map[string]bool, len(resolvedRefs))
	for _, ref := range resolvedRefs {
		resolved[ref] = true
	}

	remaining := session.Entries[:0]
	for _, entry := range session.Entries {
		if !resolved[entry.SourceRef] {
			remaining = append(remaining, entry)
		}
	}

	if len(remaining) == 0 {
		return s.ClearSession(ctx, sessionID)
	}

	session.Entries = remaining
	session.UpdatedAt = time.Now()
	return s.Sessions.Update(ctx, sessionID, session)
}

// ClearSession deletes a session, its progress snapshot, and the pending
// pointer when it refers to this session.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(sessionProgressPrefix + sessionID)); err != nil {
			return err
		}

		item, err := txn.Get([]byte(pendingSessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var pending string
		if err := item.Value(func(val []byte) error {
			pending = string(val)
			return nil
		}); err != nil {
			return err
		}
		if pending == sessionID {
			return txn.Delete([]byte(pendingSessionKey))
		}
		return nil
	})
}

// SetPendingSession records the single "open on next foreground" pointer so a
// restart can resurface the unresolved batch.
func (s *Store) SetPendingSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pendingSessionKey), []byte(sessionID))
	})
}

// PendingSession returns the session awaiting re-open, or empty when none.
func (s *Store) PendingSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pendingSessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sessionID = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("get pending session: %w", err)
	}
	return sessionID, nil
}

// SaveProgress persists the lightweight {done, total} snapshot for a session.
func (s *Store) SaveProgress(ctx context.Context, sessionID string, progress domain.Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionProgressPrefix+sessionID), data)
	})
}

// GetProgress returns the persisted progress snapshot, zero-valued when absent
// or unreadable.
func (s *Store) GetProgress(ctx context.Context, sessionID string) domain.Progress {
	var progress domain.Progress

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionProgressPrefix + sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &progress)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) && s.logger != nil {
		s.logger.Warn("progress snapshot unreadable",
			"session_id", sessionID,
			"error", err,
		)
	}
	return progress
}
