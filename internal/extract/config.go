package extract

import "github.com/hbomb79/Hermes/internal/ffmpeg"

type Config struct {
	// Only URLs starting with one of these prefixes are accepted for extraction
	AllowedPrefixes []string `yaml:"allowed_prefixes" env:"ALLOWED_URL_PREFIXES" env-separator:"," env-default:"https://www.youtube.com,https://youtu.be"`

	// Path (or name, resolved via $PATH) of the yt-dlp executable
	YtdlpBinaryPath string `yaml:"ytdlp_binary" env:"YTDLP_BINARY_PATH" env-default:"yt-dlp"`

	// yt-dlp format selector used when downloading the source
	Format string `yaml:"format" env:"EXTRACT_FORMAT" env-default:"bestaudio/best"`

	// Bitrate of the produced MP3
	AudioBitrate string `yaml:"audio_bitrate" env:"EXTRACT_AUDIO_BITRATE" env-default:"320k"`

	// Optional proxy URL and User-Agent used for all yt-dlp requests
	Proxy     string `yaml:"proxy" env:"EXTRACT_PROXY"`
	UserAgent string `yaml:"user_agent" env:"EXTRACT_USER_AGENT" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`

	SkipCertificateCheck bool `yaml:"skip_certificate_check" env:"EXTRACT_SKIP_CERTIFICATE_CHECK" env-default:"false"`

	Ffmpeg ffmpeg.Config `yaml:"ffmpeg"`
}
