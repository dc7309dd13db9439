package extract

import (
	"fmt"
	"strings"
)

type (
	// ValidationError is returned when a URL is not acceptable for
	// extraction. No extraction is attempted for such URLs.
	ValidationError struct {
		URL    string
		Reason string
	}

	// ExtractionError wraps a failure of the extraction pipeline, tagged
	// with the stage of the pipeline it occurred in.
	ExtractionError struct {
		Stage Stage
		Err   error
	}

	Stage string
)

const (
	DownloadStage  Stage = "download"
	TranscodeStage Stage = "transcode"
	VerifyStage    Stage = "verify"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("URL '%s' is not valid: %s", e.URL, e.Reason)
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidateURL ensures the URL provided starts with one of the accepted
// prefixes, returning a *ValidationError if it does not.
func ValidateURL(url string, prefixes []string) error {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(url, prefix) {
			return nil
		}
	}

	return &ValidationError{URL: url, Reason: fmt.Sprintf("must start with one of %s", strings.Join(prefixes, ", "))}
}
