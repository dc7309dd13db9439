package ffmpeg

import "github.com/floostack/transcoder/ffmpeg"

const (
	mp3Codec  = "libmp3lame"
	mp3Format = "mp3"
)

// Mp3Options returns the FFmpeg options used to extract the audio
// stream of the input as an MP3 file with the bitrate provided (e.g. "320k").
// Any video stream (including embedded cover art) is dropped.
func Mp3Options(bitrate string) *ffmpeg.Options {
	codec := mp3Codec
	format := mp3Format
	skipVideo := true
	overwrite := true

	return &ffmpeg.Options{
		AudioCodec:   &codec,
		AudioBitrate: &bitrate,
		SkipVideo:    &skipVideo,
		OutputFormat: &format,
		Overwrite:    &overwrite,
	}
}
