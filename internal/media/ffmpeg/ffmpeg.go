package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultClipBitrate is used when a cut does not name a bitrate.
const DefaultClipBitrate = "192k"

// CommandRunner executes a binary with arguments.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Runner invokes ffmpeg.
type Runner struct {
	Binary string
	run    CommandRunner
}

// New returns a runner for binary ("ffmpeg" when empty).
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, run: defaultCommandRunner}
}

// WithCommandRunner returns a copy of r that executes through run.
func (r *Runner) WithCommandRunner(run CommandRunner) *Runner {
	clone := *r
	clone.run = run
	return &clone
}

// Concat joins inputs into output using the concat demuxer with stream copy.
// The file list is written into workDir.
func (r *Runner) Concat(ctx context.Context, inputs []string, output, workDir string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat: no inputs")
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], output)
	}
	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(inputs)), 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat: write list: %w", err)
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", output}
	if err := r.run(ctx, r.Binary, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// Cut extracts [start, start+duration) from input into an MP3 at bitrate.
func (r *Runner) Cut(ctx context.Context, input, output string, start, duration float64, bitrate string) error {
	if duration <= 0 {
		return fmt.Errorf("ffmpeg cut: duration must be positive, got %v", duration)
	}
	if start < 0 {
		start = 0
	}
	if strings.TrimSpace(bitrate) == "" {
		bitrate = DefaultClipBitrate
	}
	args := CutArgs(input, output, start, duration, bitrate)
	if err := r.run(ctx, r.Binary, args...); err != nil {
		return fmt.Errorf("ffmpeg cut: %w", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("ffmpeg cut: output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg cut: output is empty")
	}
	return nil
}

// CutArgs builds the argument list for Cut.
func CutArgs(input, output string, start, duration float64, bitrate string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-acodec", "libmp3lame",
		"-b:a", bitrate,
		output,
	}
}

// ConcatList renders a concat demuxer file list with quoting for paths
// containing single quotes.
func ConcatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("ffmpeg concat: read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat: write %s: %w", dst, err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
