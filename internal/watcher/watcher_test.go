package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupWatcher(t *testing.T, opts Options) (*Watcher, string) {
	t.Helper()

	dir := t.TempDir()

	w, err := New(testLogger(), opts)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)

	return w, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_EmitsSettledFile(t *testing.T) {
	w, dir := setupWatcher(t, Options{SettleDelay: 50 * time.Millisecond})

	path := filepath.Join(dir, "sintel.mp4")
	writeFile(t, path, "video bytes")

	select {
	case event := <-w.Events():
		assert.Equal(t, path, event.Path)
		assert.Equal(t, int64(len("video bytes")), event.Size)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a settled-file event")
	}
}

func TestWatcher_WritesResetSettleTimer(t *testing.T) {
	w, dir := setupWatcher(t, Options{SettleDelay: 200 * time.Millisecond})

	path := filepath.Join(dir, "big_buck_bunny.mkv")
	writeFile(t, path, "part one")

	// Keep writing within the settle window; no event may fire yet.
	for i := 0; i < 3; i++ {
		time.Sleep(80 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(" more")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		select {
		case event := <-w.Events():
			t.Fatalf("file surfaced before it settled: %+v", event)
		default:
		}
	}

	select {
	case event := <-w.Events():
		assert.Equal(t, path, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event after writes stopped")
	}
}

func TestWatcher_IgnoresNonVideoFiles(t *testing.T) {
	w, dir := setupWatcher(t, Options{SettleDelay: 50 * time.Millisecond})

	writeFile(t, filepath.Join(dir, "notes.txt"), "not a video")
	writeFile(t, filepath.Join(dir, "download.mp4.part"), "incomplete")
	writeFile(t, filepath.Join(dir, ".hidden.mp4"), "hidden")
	writeFile(t, filepath.Join(dir, "clip.mov"), "real video")

	select {
	case event := <-w.Events():
		assert.Equal(t, filepath.Join(dir, "clip.mov"), event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the video file to surface")
	}

	select {
	case extra := <-w.Events():
		t.Fatalf("ignored file surfaced: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_RemoveCancelsPendingFile(t *testing.T) {
	w, dir := setupWatcher(t, Options{SettleDelay: 300 * time.Millisecond})

	path := filepath.Join(dir, "fleeting.webm")
	writeFile(t, path, "here and gone")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	select {
	case event := <-w.Events():
		t.Fatalf("removed file surfaced: %+v", event)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.False(t, opts.shouldIgnore("/drop/movie.mp4"))
	assert.False(t, opts.shouldIgnore("/drop/Movie.MKV"))
	assert.True(t, opts.shouldIgnore("/drop/movie.mp4.tmp"))
	assert.True(t, opts.shouldIgnore("/drop/movie.crdownload"))
	assert.True(t, opts.shouldIgnore("/drop/.DS_Store"))
	assert.True(t, opts.shouldIgnore("/drop/.partial.mp4"))
	assert.True(t, opts.shouldIgnore("/drop/readme.md"))
}
