package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbomb79/Hermes/internal/api"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/extract"
	"github.com/hbomb79/Hermes/internal/lifecycle"
	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// Hermes represents the top-level object for the server, and is responsible
	// for initialising the services and wiring them to the event bus.
	hermesImpl struct {
		eventBus        event.EventCoordinator
		config          HermesConfig
		lifecycle       *lifecycle.Manager
		activityService *activityService
		restGateway     *api.RestGateway
	}
)

func New(config HermesConfig) (*hermesImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping Hermes services using config: %#v\n", config)
	hermes := &hermesImpl{
		eventBus: event.New(),
		config:   config,
	}

	manager, err := lifecycle.New(config.Lifecycle, hermes.eventBus)
	if err != nil {
		return nil, fmt.Errorf("failed to construct lifecycle manager: %w", err)
	}
	hermes.lifecycle = manager

	extractor := extract.New(config.Extract, config.Lifecycle.DownloadPath)
	hermes.restGateway = api.NewRestGateway(&config.Rest, extractor, manager, hermes.eventBus)
	hermes.activityService = newActivityService(hermes.restGateway, hermes.eventBus)
	registerEventMetrics(hermes.eventBus)

	return hermes, nil
}

// registerEventMetrics counts every event dispatched on the bus
func registerEventMetrics(eventBus event.EventHandler) {
	for _, ev := range []event.Event{event.FILE_REGISTERED, event.FILE_EXPIRED, event.DOWNLOAD_COMPLETE, event.DOWNLOAD_FAILED} {
		eventBus.RegisterHandlerFunction(ev, func(ev event.Event, _ event.Payload) {
			metrics.IncEvent(string(ev))
		})
	}
}

// Run will start all of Hermes: the download directory is reset, and then
// the lifecycle manager, activity service and REST gateway are spawned.
//
// This function will not return until Hermes is stopped.
// To stop Hermes, the provided context must be cancelled. A crash in any
// service also stops Hermes, and the error from the first crash is returned.
func (hermes *hermesImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel(fmt.Errorf("%s: %w", label, err))
	}

	log.Emit(logger.INFO, "Resetting download directory %s\n", hermes.config.Lifecycle.DownloadPath)
	hermes.lifecycle.Reset()

	wg := &sync.WaitGroup{}
	hermes.spawnAsyncService(ctx, wg, hermes.lifecycle, "lifecycle-manager", crashHandler)
	hermes.spawnAsyncService(ctx, wg, hermes.activityService, "activity-service", crashHandler)
	hermes.spawnAsyncService(ctx, wg, hermes.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Hermes services spawned!\n")

	wg.Wait()
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// spawnAsyncService will run the provided service as it's own
// go-routine, ensuring that the service waitgroup is updated correctly
func (hermes *hermesImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
