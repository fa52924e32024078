// Package transcoder converts raw audio recordings to the distribution
// format by running ffmpeg as a subprocess.
package transcoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FFmpeg transcodes webm audio to mp3 via the ffmpeg binary.
type FFmpeg struct {
	binPath string
	workDir string
	logger  *zap.Logger
}

// NewFFmpeg creates a transcoder. binPath defaults to "ffmpeg" on PATH and
// workDir to the OS temp dir.
func NewFFmpeg(binPath, workDir string, logger *zap.Logger) *FFmpeg {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{binPath: binPath, workDir: workDir, logger: logger}
}

// Transcode converts a webm blob to mp3. ffmpeg reads and writes files, so
// the blob goes through the work dir; both temp files are removed before
// returning. The subprocess is killed when ctx is cancelled.
func (f *FFmpeg) Transcode(ctx context.Context, webm []byte) ([]byte, error) {
	name := uuid.New().String()
	input := filepath.Join(f.workDir, name+".webm")
	output := filepath.Join(f.workDir, name+".mp3")

	if err := os.WriteFile(input, webm, 0600); err != nil {
		return nil, fmt.Errorf("write transcode input: %w", err)
	}
	defer os.Remove(input)
	defer os.Remove(output)

	cmd := exec.CommandContext(ctx, f.binPath, "-i", input, "-vn", output)
	if out, err := cmd.CombinedOutput(); err != nil {
		f.logger.Error("ffmpeg failed", zap.Error(err), zap.ByteString("output", out))
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	mp3, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read transcode output: %w", err)
	}
	return mp3, nil
}
