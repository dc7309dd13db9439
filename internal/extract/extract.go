package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/ffmpeg"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("Extract")

const (
	mp3Extension   = ".mp3"
	mp3MediaType   = "audio/mpeg"
	fallbackTitle  = "audio"
	maxTitleLength = 200
)

type (
	downloader interface {
		Download(ctx context.Context, url string, outputTemplate string) (*sourceFile, error)
	}

	transcoder interface {
		Transcode(ctx context.Context, inputPath string, outputPath string) error
	}

	// Audio describes a successfully extracted MP3 file
	Audio struct {
		Path     string
		Title    string
		Filename string
	}

	// Service converts a source URL in to a local MP3 file inside of the
	// output directory, by downloading the best available audio with yt-dlp
	// and then transcoding it with FFmpeg.
	Service struct {
		config     Config
		outputDir  string
		downloader downloader
		transcoder transcoder
	}

	ffmpegTranscoder struct {
		config  ffmpeg.Config
		bitrate string
	}
)

func New(config Config, outputDir string) *Service {
	return &Service{
		config:     config,
		outputDir:  outputDir,
		downloader: &ytdlpDownloader{config},
		transcoder: &ffmpegTranscoder{config.Ffmpeg, config.AudioBitrate},
	}
}

// ValidateURL checks the URL against the configured allowed prefixes
func (service *Service) ValidateURL(url string) error {
	return ValidateURL(url, service.config.AllowedPrefixes)
}

// Extract blocks while the URL provided is downloaded and transcoded. On success
// the returned Audio points to an MP3 inside of the output directory. On failure,
// an *ExtractionError is returned and any partial output has been removed.
func (service *Service) Extract(ctx context.Context, url string) (*Audio, error) {
	if err := service.ValidateURL(url); err != nil {
		return nil, err
	}

	id := uuid.New()
	template := filepath.Join(service.outputDir, id.String()+".source.%(ext)s")

	log.Emit(logger.NEW, "Downloading audio for %s\n", url)
	source, err := service.downloader.Download(ctx, url, template)
	if err != nil {
		service.discardIntermediates(id)
		return nil, &ExtractionError{DownloadStage, err}
	}
	defer service.discardIntermediates(id)

	output := filepath.Join(service.outputDir, SanitiseTitle(source.Title)+mp3Extension)
	log.Emit(logger.INFO, "Transcoding %s to %s\n", source.Path, output)
	if err := service.transcoder.Transcode(ctx, source.Path, output); err != nil {
		discard(output)
		return nil, &ExtractionError{TranscodeStage, err}
	}

	if err := verifyMp3(output); err != nil {
		discard(output)
		return nil, &ExtractionError{VerifyStage, err}
	}

	log.Emit(logger.SUCCESS, "Extracted '%s' from %s\n", source.Title, url)
	return &Audio{Path: output, Title: source.Title, Filename: filepath.Base(output)}, nil
}

// discardIntermediates removes every file yt-dlp may have produced for
// the download with the ID provided (including partial downloads).
func (service *Service) discardIntermediates(id uuid.UUID) {
	matches, err := filepath.Glob(filepath.Join(service.outputDir, id.String()+".source.*"))
	if err != nil {
		return
	}

	for _, path := range matches {
		discard(path)
	}
}

func (transcoder *ffmpegTranscoder) Transcode(ctx context.Context, inputPath string, outputPath string) error {
	cmd := ffmpeg.NewCmd(inputPath, outputPath, &transcoder.config)
	return cmd.Run(ctx, ffmpeg.Mp3Options(transcoder.bitrate), func(progress *ffmpeg.FfmpegProgress) {
		log.Emit(logger.VERBOSE, "%s: %.1f%% (speed %s)\n", cmd, progress.Progress, progress.Speed)
	})
}

// verifyMp3 inspects the magic bytes of the file to ensure FFmpeg actually
// produced an MP3, as a failed transcode can leave an empty or truncated file.
func verifyMp3(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}

	if !mtype.Is(mp3MediaType) {
		return fmt.Errorf("output %s has media type %s, expected %s", path, mtype.String(), mp3MediaType)
	}

	return nil
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Emit(logger.WARNING, "Failed to remove intermediate file %s: %v\n", path, err)
	}
}

// SanitiseTitle converts a media title in to a string safe for use as a
// file name: path separators, reserved and control characters are replaced,
// surrounding whitespace and dots are trimmed and the length is capped.
func SanitiseTitle(title string) string {
	sanitised := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}

		return r
	}, title)

	sanitised = strings.Trim(sanitised, " .")
	for len(sanitised) > maxTitleLength {
		_, size := utf8.DecodeLastRuneInString(sanitised)
		sanitised = sanitised[:len(sanitised)-size]
	}

	sanitised = strings.TrimRight(sanitised, " .")
	if sanitised == "" {
		return fallbackTitle
	}

	return sanitised
}
