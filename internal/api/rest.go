package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Hermes/internal/api/downloads"
	"github.com/hbomb79/Hermes/internal/api/home"
	"github.com/hbomb79/Hermes/internal/api/imc"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/http/websocket"
	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

const ActivitySocketPath = "/api/hermes/v1/activity/ws"

type (
	RestConfig struct {
		HostAddr  string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
		StaticDir string `yaml:"static_dir" env:"STATIC_DIR" env-default:"static"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// Lifecycle is the file lifecycle manager as seen by the gateway: the
	// download controller hands files over to it, and newly connected
	// activity clients are told how many files it is tracking.
	Lifecycle interface {
		downloads.Lifecycle
		Tracked() int
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsibility
	// is to create the routes Hermes exposes and to manage the activity websocket.
	RestGateway struct {
		*broadcaster
		config             *RestConfig
		ec                 *echo.Echo
		socket             *websocket.SocketHub
		homeController     controller
		downloadController controller
		imcController      controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	extractor downloads.Extractor,
	lifecycle Lifecycle,
	eventBus event.EventDispatcher,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true
	ec.HTTPErrorHandler = ErrorHandler

	socket := websocket.New()
	socket.WithConnectionCallback(func() map[string]interface{} {
		return map[string]interface{}{"tracked": lifecycle.Tracked()}
	})

	gateway := &RestGateway{
		broadcaster:        newBroadcaster(socket),
		config:             config,
		ec:                 ec,
		socket:             socket,
		homeController:     home.New(),
		downloadController: downloads.New(validator.New(), extractor, lifecycle, eventBus),
		imcController:      imc.New(),
	}

	ec.Pre(middleware.RemoveTrailingSlash())
	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"*"},
	}))

	ec.GET(ActivitySocketPath, func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})
	ec.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	if info, err := os.Stat(config.StaticDir); err == nil && info.IsDir() {
		ec.Static("/static", config.StaticDir)
	} else {
		log.Emit(logger.WARNING, "Static directory '%s' not found, /static will not be served\n", config.StaticDir)
	}

	gateway.homeController.SetRoutes(ec.Group(""))
	gateway.downloadController.SetRoutes(ec.Group("/download"))
	gateway.imcController.SetRoutes(ec.Group("/imc"))

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Emit(logger.INFO, "Listening on %s\n", gateway.config.HostAddr)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
