package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/files"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconnect"
	"github.com/reelkeeperapp/reelkeeper-server/internal/store"
)

// setupRenameService builds a service with renames enabled over a real
// import directory.
func setupRenameService(t *testing.T, searcher match.Searcher) (*Service, *store.Store, string) {
	t.Helper()

	logger := testLogger()
	st, err := store.New(t.TempDir(), logger, store.NoopEmitter{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	importDir := t.TempDir()
	svc := NewService(
		st,
		match.NewFinder(searcher, logger),
		reconnect.NewFinder(logger),
		files.New(importDir, logger),
		&recordingEmitter{},
		logger,
		Options{ItemTimeout: 500 * time.Millisecond, AllowRename: true},
	)
	return svc, st, importDir
}

func writeImportFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestService_Apply_RenamesToMetadata(t *testing.T) {
	svc, st, importDir := setupRenameService(t, searcherFunc(noResults))
	ctx := context.Background()

	path := writeImportFile(t, importDir, "bbb_1080p final.mp4")

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		domain.NewLocalCandidate(path, "", "bbb_1080p final.mp4", 4, 635),
	})
	require.NoError(t, err)

	waitForDecisionStatus(t, svc, result.SessionID, path, domain.StatusNotFound)

	res, err := svc.Resolve(ctx, result.SessionID, []Resolution{{
		SourceRef: path,
		Action:    ActionManual,
		Manual: &domain.ManualMetadata{
			Title:  "Big Buck Bunny",
			Author: "Blender",
		},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	renamed := filepath.Join(importDir, "Blender - Big Buck Bunny.mp4")
	assert.FileExists(t, renamed)
	assert.NoFileExists(t, path)

	v, err := st.GetVideoByIdentity(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, "Blender - Big Buck Bunny.mp4", v.Files[0].Filename)
}

func TestService_Apply_RenameCollisionKeepsOriginal(t *testing.T) {
	svc, st, importDir := setupRenameService(t, searcherFunc(noResults))
	ctx := context.Background()

	path := writeImportFile(t, importDir, "clip one.mp4")
	writeImportFile(t, importDir, "Holiday Clip.mp4")

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		domain.NewLocalCandidate(path, "", "clip one.mp4", 4, 45),
	})
	require.NoError(t, err)

	waitForDecisionStatus(t, svc, result.SessionID, path, domain.StatusNotFound)

	res, err := svc.Resolve(ctx, result.SessionID, []Resolution{{
		SourceRef: path,
		Action:    ActionManual,
		Manual:    &domain.ManualMetadata{Title: "Holiday Clip"},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	// Target name already taken; the record keeps the original reference.
	assert.FileExists(t, path)
	v, err := st.GetVideoByIdentity(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, v.Files[0].Ref)
}

func TestService_Apply_SanitizesRenameTarget(t *testing.T) {
	svc, _, importDir := setupRenameService(t, searcherFunc(noResults))
	ctx := context.Background()

	path := writeImportFile(t, importDir, "raw.mp4")

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		domain.NewLocalCandidate(path, "", "raw.mp4", 4, 45),
	})
	require.NoError(t, err)

	waitForDecisionStatus(t, svc, result.SessionID, path, domain.StatusNotFound)

	res, err := svc.Resolve(ctx, result.SessionID, []Resolution{{
		SourceRef: path,
		Action:    ActionManual,
		Manual:    &domain.ManualMetadata{Title: `What: "a title?"`},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	assert.FileExists(t, filepath.Join(importDir, "What a title.mp4"))
}

func TestService_Apply_SameNameSkipsRename(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string) ([]match.RemoteRecord, error) {
		return []match.RemoteRecord{{
			ID:              "sintel",
			URL:             "https://www.youtube.com/watch?v=sintel",
			Title:           "Sintel",
			Author:          "",
			DurationSeconds: 888,
		}}, nil
	})
	svc, st, importDir := setupRenameService(t, searcher)
	ctx := context.Background()

	path := writeImportFile(t, importDir, "Sintel.mp4")

	_, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		domain.NewLocalCandidate(path, "", "Sintel.mp4", 4, 888),
	})
	require.NoError(t, err)

	// Exact title plus matching duration auto-applies; the target name
	// equals the current one so the file is left untouched.
	require.Eventually(t, func() bool {
		_, err := st.GetVideoByIdentity(ctx, "https://www.youtube.com/watch?v=sintel")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.FileExists(t, path)
	v, err := st.GetVideoByIdentity(ctx, "https://www.youtube.com/watch?v=sintel")
	require.NoError(t, err)
	assert.Equal(t, path, v.Files[0].Ref)
}
