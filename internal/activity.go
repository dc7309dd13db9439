package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/pkg/logger"
)

type (
	broadcastHandler func(string) error

	broadcaster interface {
		BroadcastFileRegistered(string) error
		BroadcastFileExpired(string) error
		BroadcastDownloadComplete(string) error
		BroadcastDownloadFailed(string) error
	}

	// activityService forwards file and download events from the event bus
	// to the broadcaster, which pushes them to connected websocket clients.
	activityService struct {
		broadcaster
		messageChan event.HandlerChannel
	}
)

// newActivityService subscribes to the event bus immediately, so that events
// dispatched before Run starts are buffered rather than lost.
func newActivityService(broadcaster broadcaster, eventBus event.EventHandler) *activityService {
	messageChan := make(event.HandlerChannel, 100)
	eventBus.RegisterHandlerChannel(messageChan,
		event.FILE_REGISTERED, event.FILE_EXPIRED, event.DOWNLOAD_COMPLETE, event.DOWNLOAD_FAILED)

	return &activityService{broadcaster: broadcaster, messageChan: messageChan}
}

func (service *activityService) Run(ctx context.Context) error {
	log.Emit(logger.NEW, "Activity service started\n")
	for {
		select {
		case ev := <-service.messageChan:
			if err := service.handleEvent(ev); err != nil {
				log.Emit(logger.ERROR, "Handling of event %v failed: %v\n", ev, err)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Activity service closed\n")
			return nil
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) error {
	subject, ok := ev.Payload.(string)
	if !ok {
		return errors.New("illegal payload (expected string)")
	}

	var handler broadcastHandler
	switch ev.Event {
	case event.FILE_REGISTERED:
		handler = service.BroadcastFileRegistered
	case event.FILE_EXPIRED:
		handler = service.BroadcastFileExpired
	case event.DOWNLOAD_COMPLETE:
		handler = service.BroadcastDownloadComplete
	case event.DOWNLOAD_FAILED:
		handler = service.BroadcastDownloadFailed
	default:
		return fmt.Errorf("unknown event type %s", ev.Event)
	}

	return handler(subject)
}
