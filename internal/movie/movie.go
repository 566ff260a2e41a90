// Package movie assembles persisted frames into a time-lapse video by
// driving ffmpeg's concat demuxer.
package movie

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// FrameRate is the playback rate of assembled videos.
const FrameRate = 15

var frameFileRe = regexp.MustCompile(`^(\d{12})\.(?:png|jpg)$`)

// Encoder turns a region's frame archive into an H.264 time-lapse.
type Encoder struct {
	binary string
	logger *slog.Logger
}

// NewEncoder returns an Encoder invoking the given ffmpeg binary.
func NewEncoder(binary string, logger *slog.Logger) *Encoder {
	return &Encoder{binary: binary, logger: logger}
}

// Frames lists the persisted frames for region between start and end,
// both inclusive, in timestamp order. Files that do not match the frame
// naming pattern are ignored.
func (e *Encoder) Frames(region domain.Region, start, end domain.Timestamp) ([]string, error) {
	days, err := os.ReadDir(region.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var paths []string
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(region.OutputDir, day.Name()))
		if err != nil {
			return nil, fmt.Errorf("read day dir %s: %w", day.Name(), err)
		}
		for _, f := range files {
			m := frameFileRe.FindStringSubmatch(f.Name())
			if m == nil {
				continue
			}
			ts, err := domain.ParseTimestamp(m[1])
			if err != nil {
				continue
			}
			if ts.Before(start) || (!end.IsZero() && ts.After(end)) {
				continue
			}
			paths = append(paths, filepath.Join(region.OutputDir, day.Name(), f.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ConcatList renders the ffmpeg concat demuxer input for paths, holding
// each frame for one playback tick.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", p)
		fmt.Fprintf(&b, "duration %.6f\n", 1.0/FrameRate)
	}
	return b.String()
}

// DefaultName returns the conventional output filename for a region's
// time-lapse covering [start, end].
func DefaultName(region domain.Region, start, end domain.Timestamp) string {
	return fmt.Sprintf("%s_%s-%s.mp4", region.Name, start, end)
}

// Encode assembles the frames between start and end into an H.264 video
// at dest. It returns the number of frames encoded.
func (e *Encoder) Encode(ctx context.Context, region domain.Region, start, end domain.Timestamp, dest string) (int, error) {
	paths, err := e.Frames(region, start, end)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("no frames for %s between %s and %s", region.Name, start, end)
	}

	scratch, err := os.MkdirTemp("", "frameline-movie-")
	if err != nil {
		return 0, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	listPath := filepath.Join(scratch, "frames.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(paths)), 0o644); err != nil {
		return 0, fmt.Errorf("write concat list: %w", err)
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fmt.Sprint(FrameRate),
		"-c:v", "libx264",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		dest,
	}
	e.logger.Info("encoding time-lapse",
		slog.String("region", region.Name),
		slog.Int("frames", len(paths)),
		slog.String("dest", dest))

	cmd := exec.CommandContext(ctx, e.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("%s: %w: %s", e.binary, err, out)
	}
	return len(paths), nil
}
