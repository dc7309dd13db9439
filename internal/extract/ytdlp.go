package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// printTemplate asks yt-dlp to emit a JSON object describing the final
// downloaded file once all post-processing (and moving) has completed.
const printTemplate = "after_move:%(.{title,filepath})j"

type (
	sourceFile struct {
		Title string `json:"title"`
		Path  string `json:"filepath"`
	}

	ytdlpDownloader struct {
		config Config
	}
)

var errNoSourcePrinted = errors.New("yt-dlp completed without reporting a downloaded file")

// Download fetches the best available audio for the URL provided using yt-dlp,
// writing it to the output template given.
func (downloader *ytdlpDownloader) Download(ctx context.Context, url string, outputTemplate string) (*sourceFile, error) {
	cmd := ytdlp.New().
		SetExecutable(downloader.config.YtdlpBinaryPath).
		Format(downloader.config.Format).
		NoPlaylist().
		NoProgress().
		Output(outputTemplate).
		Print(printTemplate)

	if downloader.config.Proxy != "" {
		cmd.Proxy(downloader.config.Proxy)
	}
	if downloader.config.UserAgent != "" {
		cmd.AddHeaders("User-Agent:" + downloader.config.UserAgent)
	}
	if downloader.config.SkipCertificateCheck {
		cmd.NoCheckCertificates()
	}

	result, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	return parsePrintedSource(result.Stdout)
}

// parsePrintedSource finds the last JSON line in the yt-dlp output and
// decodes it as the downloaded source file.
func parsePrintedSource(stdout string) (*sourceFile, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var source sourceFile
		if err := json.Unmarshal([]byte(line), &source); err != nil {
			return nil, fmt.Errorf("yt-dlp output '%s' could not be decoded: %w", line, err)
		}
		if source.Path == "" {
			return nil, errNoSourcePrinted
		}

		return &source, nil
	}

	return nil, errNoSourcePrinted
}
