package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mediagrab/cmd"
	"mediagrab/config"
	"mediagrab/services"
	"mediagrab/types"

	"github.com/schollz/progressbar/v3"
)

func main() {
	config.LoadDotenv()

	var (
		sourceURL string
		video     bool
		quality   string
		server    bool
		port      int
	)

	flag.StringVar(&sourceURL, "url", "", "Media URL to grab once from the command line")
	flag.BoolVar(&video, "video", false, "Grab video instead of audio in CLI mode")
	flag.StringVar(&quality, "quality", "", "Quality tier (audio: low/medium/high/ultra, video: 360p/480p/720p/1080p/best)")
	flag.BoolVar(&server, "server", false, "Start in web server mode")
	flag.IntVar(&port, "port", 8080, "Port for web server mode")
	flag.Parse()

	// Server mode takes precedence
	if server {
		cmd.StartWebServer(port)
		return
	}

	if sourceURL == "" {
		flag.Usage()
		return
	}

	if err := grabOnce(sourceURL, video, quality); err != nil {
		log.Fatalf("Error: %s", err)
	}
}

// grabOnce fetches a single URL into the current directory, rendering
// progress on the terminal.
func grabOnce(sourceURL string, video bool, quality string) error {
	if !services.ValidSourceURL(sourceURL) {
		return fmt.Errorf("unsupported URL: %s", sourceURL)
	}

	ctx := context.Background()
	extractor := services.NewYtDlpExtractor(config.GetExtractorBinary())

	title := "Unknown"
	if info, err := extractor.Probe(ctx, sourceURL); err == nil {
		title = info.Title
		fmt.Printf("Fetching: %s\n", title)
	} else {
		log.Printf("Could not probe title: %v", err)
	}

	format := types.AudioQuality(quality).FormatSelector()
	if video {
		vq := types.VideoQuality(quality)
		if !vq.Valid() {
			vq = types.VideoQualityBest
		}
		format = vq.FormatSelector()
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	base := services.SanitizeFilename(title)
	err := extractor.Fetch(ctx, sourceURL, services.FetchOptions{
		OutputTemplate: filepath.Join(".", base+".%(ext)s"),
		Format:         format,
		Progress: func(percent float64) {
			bar.Set(int(percent))
		},
	})
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Saved %s\n", base)
	return nil
}
