package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allowedPrefixes = []string{"https://www.youtube.com", "https://youtu.be"}
	mp3Header       = []byte("ID3\x04\x00\x00\x00\x00\x00\x00hermes-test-audio")
)

type (
	fakeDownloader struct {
		title    string
		ext      string
		err      error
		partial  bool
		called   int
		template string
	}

	fakeTranscoder struct {
		content []byte
		err     error
		input   string
	}
)

func (d *fakeDownloader) Download(_ context.Context, _ string, outputTemplate string) (*sourceFile, error) {
	d.called++
	d.template = outputTemplate

	path := strings.Replace(outputTemplate, "%(ext)s", d.ext, 1)
	if d.partial {
		if err := os.WriteFile(path+".part", []byte("partial"), 0o644); err != nil {
			return nil, err
		}
	}
	if d.err != nil {
		return nil, d.err
	}

	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		return nil, err
	}

	return &sourceFile{Title: d.title, Path: path}, nil
}

func (t *fakeTranscoder) Transcode(_ context.Context, inputPath string, outputPath string) error {
	t.input = inputPath
	if t.content != nil {
		if err := os.WriteFile(outputPath, t.content, 0o644); err != nil {
			return err
		}
	}

	return t.err
}

func newTestService(t *testing.T, d *fakeDownloader, tr *fakeTranscoder) (*Service, string) {
	dir := t.TempDir()
	return &Service{
		config:     Config{AllowedPrefixes: allowedPrefixes},
		outputDir:  dir,
		downloader: d,
		transcoder: tr,
	}, dir
}

func dirEntries(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func Test_ValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://vimeo.com/123", false},
		{"http://www.youtube.com/watch?v=abc", false},
		{"", false},
		{"ftp://youtu.be/abc", false},
	}

	for _, test := range tests {
		t.Run(test.url, func(t *testing.T) {
			err := ValidateURL(test.url, allowedPrefixes)
			if test.valid {
				assert.NoError(t, err)
				return
			}

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.url, validationErr.URL)
		})
	}
}

func Test_ValidateURL_IgnoresEmptyPrefix(t *testing.T) {
	assert.Error(t, ValidateURL("anything", []string{""}))
}

func Test_SanitiseTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Song", "Song"},
		{"AC/DC - Back In Black", "AC_DC - Back In Black"},
		{"what? <live>", "what_ _live_"},
		{"  ..hidden.. ", "hidden"},
		{"tab\tseparated\x00", "tabseparated"},
		{"", "audio"},
		{"...", "audio"},
		{"Canção Número 1", "Canção Número 1"},
	}

	for _, test := range tests {
		t.Run(test.title, func(t *testing.T) {
			assert.Equal(t, test.expected, SanitiseTitle(test.title))
		})
	}
}

func Test_SanitiseTitle_CapsLength(t *testing.T) {
	sanitised := SanitiseTitle(strings.Repeat("ã", 300))
	assert.LessOrEqual(t, len(sanitised), maxTitleLength)
	assert.True(t, strings.HasPrefix(sanitised, "ãã"))
	assert.Equal(t, 0, len(sanitised)%len("ã"), "multi-byte runes must not be split")
}

func Test_ParsePrintedSource(t *testing.T) {
	t.Run("last json line wins", func(t *testing.T) {
		out := "[youtube] abc: Downloading webpage\n{\"title\": \"first\", \"filepath\": \"/a\"}\n{\"title\": \"Song\", \"filepath\": \"/tmp/x.source.webm\"}\n"
		source, err := parsePrintedSource(out)
		require.NoError(t, err)
		assert.Equal(t, "Song", source.Title)
		assert.Equal(t, "/tmp/x.source.webm", source.Path)
	})

	t.Run("no json output", func(t *testing.T) {
		_, err := parsePrintedSource("[download] done\n")
		assert.ErrorIs(t, err, errNoSourcePrinted)
	})

	t.Run("missing filepath", func(t *testing.T) {
		_, err := parsePrintedSource(`{"title": "Song"}`)
		assert.ErrorIs(t, err, errNoSourcePrinted)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parsePrintedSource(`{"title": `)
		assert.Error(t, err)
	})
}

func Test_Extract_Success(t *testing.T) {
	downloader := &fakeDownloader{title: "Song", ext: "webm"}
	transcoder := &fakeTranscoder{content: mp3Header}
	service, dir := newTestService(t, downloader, transcoder)

	audio, err := service.Extract(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)

	assert.Equal(t, "Song", audio.Title)
	assert.Equal(t, "Song.mp3", audio.Filename)
	assert.Equal(t, filepath.Join(dir, "Song.mp3"), audio.Path)
	assert.True(t, strings.HasSuffix(transcoder.input, ".source.webm"))
	assert.ElementsMatch(t, []string{"Song.mp3"}, dirEntries(t, dir), "source file must be removed after transcoding")
}

func Test_Extract_InvalidURL(t *testing.T) {
	downloader := &fakeDownloader{title: "Song", ext: "webm"}
	service, dir := newTestService(t, downloader, &fakeTranscoder{content: mp3Header})

	_, err := service.Extract(context.Background(), "https://example.com/video")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Zero(t, downloader.called)
	assert.Empty(t, dirEntries(t, dir))
}

func Test_Extract_DownloadFailure(t *testing.T) {
	downloader := &fakeDownloader{ext: "webm", err: errors.New("video unavailable"), partial: true}
	service, dir := newTestService(t, downloader, &fakeTranscoder{content: mp3Header})

	_, err := service.Extract(context.Background(), "https://youtu.be/abc")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, DownloadStage, extractionErr.Stage)
	assert.Contains(t, err.Error(), "video unavailable")
	assert.Empty(t, dirEntries(t, dir), "partial downloads must be removed")
}

func Test_Extract_TranscodeFailure(t *testing.T) {
	transcoder := &fakeTranscoder{content: []byte("garbage"), err: errors.New("exit status 1")}
	service, dir := newTestService(t, &fakeDownloader{title: "Song", ext: "m4a"}, transcoder)

	_, err := service.Extract(context.Background(), "https://youtu.be/abc")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, TranscodeStage, extractionErr.Stage)
	assert.Empty(t, dirEntries(t, dir))
}

func Test_Extract_VerifyFailure(t *testing.T) {
	transcoder := &fakeTranscoder{content: []byte("this is certainly not audio")}
	service, dir := newTestService(t, &fakeDownloader{title: "Song", ext: "webm"}, transcoder)

	_, err := service.Extract(context.Background(), "https://youtu.be/abc")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, VerifyStage, extractionErr.Stage)
	assert.Empty(t, dirEntries(t, dir))
}

func Test_Extract_MissingOutput(t *testing.T) {
	service, dir := newTestService(t, &fakeDownloader{title: "Song", ext: "webm"}, &fakeTranscoder{})

	_, err := service.Extract(context.Background(), "https://youtu.be/abc")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, VerifyStage, extractionErr.Stage)
	assert.Empty(t, dirEntries(t, dir))
}
