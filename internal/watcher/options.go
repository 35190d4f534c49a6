package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures the dropfolder watcher.
type Options struct {
	// Extensions lists the file extensions surfaced as events, without
	// the leading dot.
	Extensions []string
	// IgnorePatterns are glob patterns matched against the base name.
	IgnorePatterns []string
	// SettleDelay is how long a file must stay quiet before it is
	// reported.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 2 * time.Second
	}
	if o.Extensions == nil {
		o.Extensions = []string{"mp4", "mkv", "webm", "avi", "mov", "m4v"}
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			"*.tmp",
			"*.part",
			"*.crdownload",
			".DS_Store",
			"Thumbs.db",
		}
	}
}

// shouldIgnore reports whether a path is hidden, ignored, or not a video
// file.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	for _, allowed := range o.Extensions {
		if ext == allowed {
			return false
		}
	}
	return true
}
