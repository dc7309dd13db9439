package downloads

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/extract"
	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
)

var log = logger.Get("DownloadsController")

const audioContentType = "audio/mpeg"

type (
	Request struct {
		URL string `query:"url" validate:"required"`
	}

	Extractor interface {
		ValidateURL(url string) error
		Extract(ctx context.Context, url string) (*extract.Audio, error)
	}

	// Lifecycle is the subset of the file lifecycle manager the
	// controller needs to hand over ownership of produced files.
	Lifecycle interface {
		Register(path string)
		Sweep() int
	}

	Controller struct {
		validate  *validator.Validate
		extractor Extractor
		lifecycle Lifecycle
		eventBus  event.EventDispatcher
	}
)

func New(validate *validator.Validate, extractor Extractor, lifecycle Lifecycle, eventBus event.EventDispatcher) *Controller {
	return &Controller{validate, extractor, lifecycle, eventBus}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("", controller.download)
}

// download extracts the audio of the requested URL and streams the resulting
// MP3 back as an attachment. Extraction is synchronous, so the request remains
// open for the whole download and transcode. A client disconnecting does not
// abort an extraction already in progress.
func (controller *Controller) download(ec echo.Context) error {
	var request Request
	if err := ec.Bind(&request); err != nil {
		metrics.IncDownload("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request: %s", err.Error()))
	}

	if err := controller.validate.Struct(request); err != nil {
		metrics.IncDownload("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required query parameter 'url'")
	}

	if err := controller.extractor.ValidateURL(request.URL); err != nil {
		metrics.IncDownload("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	defer controller.sweep()

	started := time.Now()
	audio, err := controller.extractor.Extract(context.WithoutCancel(ec.Request().Context()), request.URL)
	if err != nil {
		log.Emit(logger.ERROR, "Extraction of %s failed: %v\n", request.URL, err)
		metrics.IncDownload("failed")
		controller.eventBus.Dispatch(event.DOWNLOAD_FAILED, request.URL)

		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Error downloading video: %s", err.Error()))
	}

	metrics.ObserveDownload(time.Since(started))
	controller.lifecycle.Register(audio.Path)
	controller.eventBus.Dispatch(event.DOWNLOAD_COMPLETE, audio.Path)

	log.Emit(logger.SUCCESS, "Serving %s for %s\n", audio.Filename, request.URL)
	ec.Response().Header().Set(echo.HeaderContentType, audioContentType)
	return ec.Attachment(audio.Path, audio.Filename)
}

// sweep is the request-time safety net, removing any expired
// files which the timers and the periodic sweep have missed.
func (controller *Controller) sweep() {
	if removed := controller.lifecycle.Sweep(); removed > 0 {
		log.Emit(logger.INFO, "Request-time sweep removed %d expired files\n", removed)
	}
}
