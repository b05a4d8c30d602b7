package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mediagrab/types"
)

// ProgressFunc receives fetch progress as a 0-100 percentage. Callbacks are
// last-value-wins; callers that need monotonic progress clamp on their side.
type ProgressFunc func(percent float64)

// FetchOptions is the typed configuration for a single fetch. It replaces
// the ad hoc option bags the underlying tool is usually driven with.
type FetchOptions struct {
	// OutputTemplate is the full output path template, e.g.
	// "/data/job_x/x.%(ext)s".
	OutputTemplate string
	// Format is the extractor format selector expression.
	Format string
	// StartTime/EndTime bound the downloaded section, in seconds.
	StartTime *int
	EndTime   *int
	// Timeout bounds one fetch attempt. Zero means a 10 minute default.
	Timeout time.Duration
	// Progress, when set, receives percentage updates during the fetch.
	Progress ProgressFunc
}

// Extractor is the opaque media collaborator: it knows how to inspect a
// source URL and pull raw bytes off it. Everything else in the system treats
// it as a black box so tests can swap in fakes.
type Extractor interface {
	Probe(ctx context.Context, sourceURL string) (*types.MediaInfo, error)
	Fetch(ctx context.Context, sourceURL string, opts FetchOptions) error
	Search(ctx context.Context, query string, maxResults int) ([]types.MediaInfo, error)
}

// YtDlpExtractor shells out to the yt-dlp binary.
type YtDlpExtractor struct {
	binaryPath string
}

// NewYtDlpExtractor creates an extractor using the given binary, or "yt-dlp"
// from PATH when empty.
func NewYtDlpExtractor(binaryPath string) *YtDlpExtractor {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &YtDlpExtractor{binaryPath: binaryPath}
}

// CleanSourceURL strips playlist parameters from YouTube URLs so a single
// video is fetched. Unparseable URLs are returned as-is.
func CleanSourceURL(raw string) string {
	if idx := strings.Index(raw, "youtu.be/"); idx >= 0 {
		id := raw[idx+len("youtu.be/"):]
		if cut := strings.IndexAny(id, "?&"); cut >= 0 {
			id = id[:cut]
		}
		if id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if id := parsed.Query().Get("v"); id != "" {
		return "https://www.youtube.com/watch?v=" + id
	}
	return raw
}

// ValidSourceURL reports whether the URL points at a supported host.
func ValidSourceURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range []string{"youtube.com", "youtu.be", "music.youtube.com"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Probe fetches metadata for a source URL without downloading it.
func (e *YtDlpExtractor) Probe(ctx context.Context, sourceURL string) (*types.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binaryPath,
		"--dump-json", "--no-warnings", "--no-playlist", CleanSourceURL(sourceURL))

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("probe failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var info types.MediaInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("probe returned unparseable metadata: %w", err)
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if len(info.Description) > 500 {
		info.Description = info.Description[:500] + "..."
	}
	return &info, nil
}

// progressLine matches yt-dlp's "[download]  42.3% of ..." output.
var progressLine = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

// Fetch downloads the source into the location named by the options.
func (e *YtDlpExtractor) Fetch(ctx context.Context, sourceURL string, opts FetchOptions) error {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--output", opts.OutputTemplate,
		"--format", opts.Format,
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--retries", "3",
		"--fragment-retries", "3",
	}
	if opts.StartTime != nil || opts.EndTime != nil {
		args = append(args, "--download-sections", downloadSection(opts.StartTime, opts.EndTime))
	}
	args = append(args, CleanSourceURL(sourceURL))

	cmd := exec.CommandContext(ctx, e.binaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to extractor output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start extractor: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if opts.Progress == nil {
			continue
		}
		if m := progressLine.FindStringSubmatch(scanner.Text()); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				opts.Progress(pct)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("fetch failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func downloadSection(start, end *int) string {
	from := "0"
	if start != nil {
		from = strconv.Itoa(*start)
	}
	to := "inf"
	if end != nil {
		to = strconv.Itoa(*end)
	}
	return fmt.Sprintf("*%s-%s", from, to)
}

// Search runs a text search against the source and returns flat metadata.
func (e *YtDlpExtractor) Search(ctx context.Context, query string, maxResults int) ([]types.MediaInfo, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binaryPath,
		"--dump-json", "--flat-playlist", "--no-warnings",
		fmt.Sprintf("ytsearch%d:%s", maxResults, query))

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("search failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var results []types.MediaInfo
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var info types.MediaInfo
		if err := json.Unmarshal(line, &info); err != nil {
			continue
		}
		results = append(results, info)
	}
	return results, nil
}
