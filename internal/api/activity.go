package api

import (
	"path/filepath"
	"time"

	"github.com/hbomb79/Hermes/internal/http/websocket"
)

const (
	TITLE_FILE_REGISTERED   = "FILE_REGISTERED"
	TITLE_FILE_EXPIRED      = "FILE_EXPIRED"
	TITLE_DOWNLOAD_COMPLETE = "DOWNLOAD_COMPLETE"
	TITLE_DOWNLOAD_FAILED   = "DOWNLOAD_FAILED"
)

type (
	// ActivityUpdate is the body of every activity message. Files are
	// identified by their base name only, so server paths are never leaked.
	ActivityUpdate struct {
		Subject string    `json:"subject"`
		Time    time.Time `json:"time"`
	}

	broadcaster struct {
		socketHub *websocket.SocketHub
	}
)

func newBroadcaster(socketHub *websocket.SocketHub) *broadcaster {
	return &broadcaster{socketHub}
}

func (hub *broadcaster) BroadcastFileRegistered(path string) error {
	hub.broadcast(TITLE_FILE_REGISTERED, filepath.Base(path))
	return nil
}

func (hub *broadcaster) BroadcastFileExpired(path string) error {
	hub.broadcast(TITLE_FILE_EXPIRED, filepath.Base(path))
	return nil
}

func (hub *broadcaster) BroadcastDownloadComplete(path string) error {
	hub.broadcast(TITLE_DOWNLOAD_COMPLETE, filepath.Base(path))
	return nil
}

func (hub *broadcaster) BroadcastDownloadFailed(url string) error {
	hub.broadcast(TITLE_DOWNLOAD_FAILED, url)
	return nil
}

func (hub *broadcaster) broadcast(title string, subject string) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": ActivityUpdate{Subject: subject, Time: time.Now()}},
		Type:  websocket.Update,
	})
}
