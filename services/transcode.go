package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mediagrab/config"
	"mediagrab/types"

	"github.com/dhowden/tag"
)

// ErrAllStrategiesFailed signals that every conversion strategy was tried
// and none produced output. Callers degrade to serving the original file.
var ErrAllStrategiesFailed = errors.New("all conversion strategies failed")

// Strategy converts one audio file into an MP3 at the requested quality.
type Strategy interface {
	Name() string
	Convert(ctx context.Context, inputPath, outputPath string, quality types.AudioQuality) error
}

// Transcoder tries an ordered list of strategies until one succeeds.
type Transcoder struct {
	strategies []Strategy
}

// NewTranscoder builds the default strategy chain: passthrough for files
// that already are MP3, then ffmpeg, then the extractor's own converter.
func NewTranscoder(settings *config.Settings, extractorBinary string) *Transcoder {
	return &Transcoder{
		strategies: []Strategy{
			&PassthroughStrategy{},
			&FFmpegStrategy{settings: settings},
			&ExtractorStrategy{binaryPath: extractorBinary},
		},
	}
}

// NewTranscoderWithStrategies builds a transcoder over an explicit chain.
func NewTranscoderWithStrategies(strategies ...Strategy) *Transcoder {
	return &Transcoder{strategies: strategies}
}

// Run tries each strategy in priority order. The first success wins;
// exhaustion returns ErrAllStrategiesFailed.
func (t *Transcoder) Run(ctx context.Context, inputPath, outputPath string, quality types.AudioQuality) error {
	for _, strategy := range t.strategies {
		err := strategy.Convert(ctx, inputPath, outputPath, quality)
		if err == nil {
			if verifyOutput(outputPath) {
				log.Printf("Conversion via %s succeeded: %s", strategy.Name(), filepath.Base(outputPath))
				return nil
			}
			err = errors.New("no output produced")
		}
		log.Printf("Conversion via %s failed: %v", strategy.Name(), err)
		os.Remove(outputPath)
	}
	return ErrAllStrategiesFailed
}

func verifyOutput(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// PassthroughStrategy copies the input when it already is an MP3 file.
// The container is sniffed rather than trusted from the extension.
type PassthroughStrategy struct{}

func (s *PassthroughStrategy) Name() string { return "passthrough" }

func (s *PassthroughStrategy) Convert(ctx context.Context, inputPath, outputPath string, _ types.AudioQuality) error {
	if !isMP3(inputPath) {
		return errors.New("input is not MP3")
	}
	return copyFile(inputPath, outputPath)
}

// isMP3 sniffs the file's real container. MP3 streams without an ID3 header
// are accepted on extension when sniffing is inconclusive.
func isMP3(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if _, fileType, err := tag.Identify(f); err == nil {
		return fileType == tag.MP3
	}
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// ReadEmbeddedTitle returns the title tag embedded in a media file, if any.
// Used as a late title fallback when probing the source failed.
func ReadEmbeddedTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return meta.Title()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Sync()
}

// FFmpegStrategy converts through the ffmpeg binary configured in Settings.
type FFmpegStrategy struct {
	settings *config.Settings
}

func (s *FFmpegStrategy) Name() string { return "ffmpeg" }

func (s *FFmpegStrategy) Convert(ctx context.Context, inputPath, outputPath string, quality types.AudioQuality) error {
	binary := s.settings.FFmpegPath()
	if binary == "" {
		return errors.New("ffmpeg path not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary,
		"-y", "-i", inputPath,
		"-vn",
		"-b:a", fmt.Sprintf("%dk", quality.Bitrate()),
		"-q:a", "2",
		outputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// ExtractorStrategy drives the extraction tool's built-in audio converter
// against a local file. Heaviest dependency, tried last.
type ExtractorStrategy struct {
	binaryPath string
}

func (s *ExtractorStrategy) Name() string { return "extractor" }

func (s *ExtractorStrategy) Convert(ctx context.Context, inputPath, outputPath string, quality types.AudioQuality) error {
	binary := s.binaryPath
	if binary == "" {
		binary = "yt-dlp"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	template := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".%(ext)s"
	cmd := exec.CommandContext(ctx, binary,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", fmt.Sprintf("%d", quality.Bitrate()),
		"--output", template,
		"--no-warnings",
		"file://"+inputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("extractor conversion failed: %w, stderr: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
