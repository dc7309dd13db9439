package helpers

import (
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/http/websocket"
	"github.com/hbomb79/go-chanassert"
)

// MatchSocketMessage returns a matcher which will match messages which have
// the title and message type provided.
func MatchSocketMessage(title string, typ websocket.SocketMessageType) chanassert.Matcher[websocket.SocketMessage] {
	return chanassert.MatchStructPartial(websocket.SocketMessage{Title: title, Type: typ})
}

// MatchActivityUpdate returns a chanassert matcher which will
// match activity feed updates with the given title which
// concern the subject provided.
func MatchActivityUpdate(title string, subject string) chanassert.Matcher[websocket.SocketMessage] {
	return chanassert.MatchPredicate(func(message websocket.SocketMessage) bool {
		if message.Title != title || message.Type != websocket.Update {
			return false
		}

		update, ok := message.Body["arguments"].(map[string]any)
		if !ok {
			return false
		}

		return update["subject"] == subject
	})
}

// MatchEvent returns a matcher for events delivered to a handler
// channel which carry the payload provided.
func MatchEvent(ev event.Event, payload string) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(handlerEvent event.HandlerEvent) bool {
		return handlerEvent.Event == ev && handlerEvent.Payload == payload
	})
}
