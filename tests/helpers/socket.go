package helpers

import (
	"testing"

	gorilla "github.com/gorilla/websocket"
	"github.com/hbomb79/Hermes/internal/http/websocket"
	"github.com/stretchr/testify/require"
)

// DialActivity connects to the activity websocket at the URL provided. Every
// message received on the connection is decoded and delivered on the returned
// channel, ready to be consumed by a chanassert expecter. The connection is
// closed when the test completes.
func DialActivity(t *testing.T, url string) (*gorilla.Conn, chan websocket.SocketMessage) {
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	messages := make(chan websocket.SocketMessage, 32)
	closed := make(chan struct{})
	go func() {
		for {
			var message websocket.SocketMessage
			if err := conn.ReadJSON(&message); err != nil {
				return
			}

			select {
			case messages <- message:
			case <-closed:
				return
			}
		}
	}()

	t.Cleanup(func() {
		close(closed)
		conn.Close()
	})

	return conn, messages
}
