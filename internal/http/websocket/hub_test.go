package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hbomb79/Hermes/internal/http/websocket"
	"github.com/hbomb79/Hermes/tests/helpers"
	"github.com/hbomb79/go-chanassert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*websocket.SocketHub, string) {
	hub := websocket.New()
	hub.WithConnectionCallback(func() map[string]interface{} {
		return map[string]interface{}{"version": "test"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Start(ctx)
	}()

	server := httptest.NewServer(http.HandlerFunc(hub.UpgradeToSocket))
	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(server.URL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		// A plain GET against a running hub fails the upgrade handshake with 400
		return resp.StatusCode == http.StatusBadRequest
	}, time.Second, 10*time.Millisecond)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

// awaitWelcome blocks until the welcome message has been received, at
// which point the client is known to be registered with the hub.
func awaitWelcome(t *testing.T, messages chan websocket.SocketMessage) {
	exp := chanassert.NewChannelExpecter(messages).Expect(
		chanassert.OneOf(helpers.MatchSocketMessage("CONNECTION_ESTABLISHED", websocket.Welcome)),
	)
	exp.Listen()
	exp.AssertSatisfied(t, 2*time.Second)
}

func Test_Hub_WelcomesNewClients(t *testing.T) {
	_, url := startHub(t)
	_, messages := helpers.DialActivity(t, url)

	exp := chanassert.NewChannelExpecter(messages).Expect(
		chanassert.OneOf(chanassert.MatchPredicate(func(message websocket.SocketMessage) bool {
			return message.Title == "CONNECTION_ESTABLISHED" &&
				message.Type == websocket.Welcome &&
				message.Body["version"] == "test" &&
				message.Body["client"] != nil
		})),
	)
	exp.Listen()
	exp.AssertSatisfied(t, 2*time.Second)
}

func Test_Hub_BroadcastsToAllClients(t *testing.T) {
	hub, url := startHub(t)
	_, first := helpers.DialActivity(t, url)
	_, second := helpers.DialActivity(t, url)
	awaitWelcome(t, first)
	awaitWelcome(t, second)

	expecters := make([]chanassert.Expecter[websocket.SocketMessage], 0, 2)
	for _, messages := range []chan websocket.SocketMessage{first, second} {
		exp := chanassert.NewChannelExpecter(messages).Expect(
			chanassert.OneOf(chanassert.MatchPredicate(func(message websocket.SocketMessage) bool {
				return message.Title == "FILE_EXPIRED" && message.Body["subject"] == "Song.mp3"
			})),
		)
		exp.Listen()
		expecters = append(expecters, exp)
	}

	hub.Send(&websocket.SocketMessage{
		Title: "FILE_EXPIRED",
		Body:  map[string]interface{}{"subject": "Song.mp3"},
		Type:  websocket.Update,
	})

	for _, exp := range expecters {
		exp.AssertSatisfied(t, 2*time.Second)
	}
}

func Test_Hub_RejectsClientCommands(t *testing.T) {
	_, url := startHub(t)
	conn, messages := helpers.DialActivity(t, url)
	awaitWelcome(t, messages)

	exp := chanassert.NewChannelExpecter(messages).Expect(
		chanassert.OneOf(chanassert.MatchPredicate(func(message websocket.SocketMessage) bool {
			return message.Title == "COMMAND_FAILURE" &&
				message.Type == websocket.ErrorResponse &&
				message.Body["command"] == "DELETE_EVERYTHING"
		})),
	)
	exp.Listen()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"title": "DELETE_EVERYTHING", "type": int(websocket.Command)}))
	exp.AssertSatisfied(t, 2*time.Second)
}

func Test_Hub_SendWhileOfflineIsDropped(t *testing.T) {
	hub := websocket.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Send(&websocket.SocketMessage{Title: "FILE_EXPIRED"})
	}()

	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func Test_Hub_UpgradeRefusedWhenOffline(t *testing.T) {
	hub := websocket.New()
	rec := httptest.NewRecorder()

	hub.UpgradeToSocket(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
