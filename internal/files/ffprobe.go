package files

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeResult is the subset of ffprobe's JSON output we care about.
type probeResult struct {
	Format probeFormat `json:"format"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

// probeDurationSeconds executes ffprobe against the path and extracts the
// container duration, truncated to whole seconds.
func probeDurationSeconds(ctx context.Context, binary, path string) (int64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-of", "json",
		"--", path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0, nil
	}
	return int64(seconds), nil
}
