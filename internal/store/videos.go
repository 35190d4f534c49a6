package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

const (
	videoPrefix           = "video:"
	videoByIdentityPrefix = "video:idx:identity:"
)

// Video sentinel errors.
var (
	ErrVideoNotFound = errors.New("video not found")
	ErrVideoExists   = errors.New("video already exists")
)

// VideoCreatedEvent is broadcast when a record is committed.
type VideoCreatedEvent struct {
	Video *domain.Video `json:"video"`
}

// EventType implements the sse event naming contract.
func (VideoCreatedEvent) EventType() string { return "video.created" }

// VideoUpdatedEvent is broadcast when a record changes (e.g. a reconnect).
type VideoUpdatedEvent struct {
	Video *domain.Video `json:"video"`
}

// EventType implements the sse event naming contract.
func (VideoUpdatedEvent) EventType() string { return "video.updated" }

// CreateVideo creates a new video record and its identity index entries:
// one per key the record answers to (source URL, file refs, tree keys).
// Returns ErrVideoExists when the ID or any identity key is already taken.
func (s *Store) CreateVideo(ctx context.Context, video *domain.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(videoPrefix + video.ID)
	identities := video.IdentityKeys()

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrVideoExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check video key: %w", err)
		}

		for _, identity := range identities {
			idKey := []byte(videoByIdentityPrefix + identity)
			if _, err := txn.Get(idKey); err == nil {
				return ErrVideoExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check identity key: %w", err)
			}
		}

		data, err := json.Marshal(video)
		if err != nil {
			return fmt.Errorf("marshal video: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		for _, identity := range identities {
			if err := txn.Set([]byte(videoByIdentityPrefix+identity), []byte(video.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVideoExists) {
			return ErrVideoExists
		}
		return fmt.Errorf("create video: %w", err)
	}

	if err := s.indexer.IndexVideo(ctx, video); err != nil && s.logger != nil {
		s.logger.Warn("failed to index video", "id", video.ID, "error", err)
	}
	s.emitter.Emit(VideoCreatedEvent{Video: video})

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "video created",
			slog.String("id", video.ID),
			slog.String("title", video.Title),
			slog.String("source", video.Source),
		)
	}
	return nil
}

// GetVideo retrieves a video record by ID.
func (s *Store) GetVideo(ctx context.Context, id string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var video domain.Video
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(videoPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &video)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return &video, nil
}

// GetVideoByIdentity retrieves a video record by any of its identity keys
// (source URL, file reference, or tree key). Used for duplicate detection.
func (s *Store) GetVideoByIdentity(ctx context.Context, identity string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identity == "" {
		return nil, ErrVideoNotFound
	}

	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(videoByIdentityPrefix + identity))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video by identity: %w", err)
	}

	return s.GetVideo(ctx, id)
}

// UpdateVideo updates an existing record, moving the identity index entries
// to match its current key set (a reconnect swaps the file reference).
func (s *Store) UpdateVideo(ctx context.Context, video *domain.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(videoPrefix + video.ID)

	err := s.db.Update(func(txn *badger.Txn) error {
		var old domain.Video
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrVideoNotFound
		}
		if err != nil {
			return fmt.Errorf("get video key: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return fmt.Errorf("unmarshal old video: %w", err)
		}

		oldKeys, newKeys := old.IdentityKeys(), video.IdentityKeys()
		keep := make(map[string]bool, len(newKeys))
		for _, k := range newKeys {
			keep[k] = true
		}
		had := make(map[string]bool, len(oldKeys))
		for _, k := range oldKeys {
			had[k] = true
			if !keep[k] {
				if err := txn.Delete([]byte(videoByIdentityPrefix + k)); err != nil {
					return err
				}
			}
		}
		for _, k := range newKeys {
			if !had[k] {
				if err := txn.Set([]byte(videoByIdentityPrefix+k), []byte(video.ID)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(video)
		if err != nil {
			return fmt.Errorf("marshal video: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("update video: %w", err)
	}

	if err := s.indexer.IndexVideo(ctx, video); err != nil && s.logger != nil {
		s.logger.Warn("failed to reindex video", "id", video.ID, "error", err)
	}
	s.emitter.Emit(VideoUpdatedEvent{Video: video})

	return nil
}

// ListVideos returns all video records.
func (s *Store) ListVideos(ctx context.Context) ([]*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var videos []*domain.Video
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(videoPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(videoPrefix)); it.ValidForPrefix([]byte(videoPrefix)); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(videoPrefix):], "idx:") {
				continue
			}

			var video domain.Video
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &video)
			}); err != nil {
				return fmt.Errorf("unmarshal video %s: %w", key, err)
			}
			videos = append(videos, &video)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// ListMissingFileVideos returns records whose backing files are all flagged
// missing. These are the reconnect candidates.
func (s *Store) ListMissingFileVideos(ctx context.Context) ([]*domain.Video, error) {
	videos, err := s.ListVideos(ctx)
	if err != nil {
		return nil, err
	}

	var missing []*domain.Video
	for _, v := range videos {
		if v.AllFilesMissing() {
			missing = append(missing, v)
		}
	}
	return missing, nil
}
