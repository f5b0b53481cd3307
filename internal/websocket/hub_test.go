package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/igdb-proxy/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discardLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestClient(hub *Hub, id string) *Client {
	return &Client{id: id, hub: hub, send: make(chan []byte, 8), logger: hub.logger}
}

func receive(t *testing.T, client *Client) *Message {
	t.Helper()
	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return &msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", client.id)
		return nil
	}
}

func TestBroadcastLookupRoutesByChannel(t *testing.T) {
	hub := startHub(t)
	gameClient := newTestClient(hub, "game")
	genreClient := newTestClient(hub, "genre")
	firehose := newTestClient(hub, "all")

	for _, c := range []*Client{gameClient, genreClient, firehose} {
		hub.Register(c)
	}
	hub.Subscribe(gameClient, "game")
	hub.Subscribe(genreClient, "genre")
	hub.Subscribe(firehose, ChannelAll)
	hub.Subscribe(firehose, "game")
	waitFor(t, "subscriptions", func() bool {
		return hub.GetSubscriberCount("game") == 2 && hub.GetSubscriberCount(ChannelAll) == 1 && hub.GetSubscriberCount("genre") == 1
	})

	hub.BroadcastLookup(domain.LookupEvent{ID: "e1", Endpoint: domain.EndpointGame, Param: "1942", Status: domain.LookupOK})

	msg := receive(t, gameClient)
	if msg.Type != MessageTypeLookup || msg.Channel != "game" {
		t.Fatalf("unexpected message %+v", msg)
	}
	receive(t, firehose)

	select {
	case data := <-firehose.send:
		t.Fatalf("firehose received a duplicate: %s", data)
	case data := <-genreClient.send:
		t.Fatalf("genre subscriber received a game lookup: %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	if hub.GetTotalConnections() != 3 {
		t.Fatalf("expected 3 connections, got %d", hub.GetTotalConnections())
	}
}

func TestUnregisterDropsSubscriptions(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "c1")
	hub.Register(client)
	hub.Subscribe(client, "popular")
	waitFor(t, "subscription", func() bool { return hub.GetSubscriberCount("popular") == 1 })

	hub.Unregister(client)
	waitFor(t, "unregister", func() bool { return hub.GetTotalConnections() == 0 })

	if hub.GetSubscriberCount("popular") != 0 {
		t.Fatal("expected subscriptions to be removed")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestSubscriptionsDoNotBlockAfterStop(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "late")
	hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Subscribe(client, ChannelAll)
			hub.Unsubscribe(client, ChannelAll)
		}
		hub.Register(client)
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription requests blocked on a stopped hub")
	}
}

func TestServeWsSubscribeAndReceive(t *testing.T) {
	hub := startHub(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, discardLogger(), w, r)
	}))
	t.Cleanup(server.Close)

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Channel: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != MessageTypeError {
		t.Fatalf("expected error for unknown channel, got %+v", reply)
	}

	if err := conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Channel: "popular"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "subscribed" || reply.Channel != "popular" {
		t.Fatalf("unexpected ack %+v", reply)
	}
	waitFor(t, "subscription", func() bool { return hub.GetSubscriberCount("popular") == 1 })

	hub.BroadcastLookup(domain.LookupEvent{ID: "e2", Endpoint: domain.EndpointPopular, Status: domain.LookupOK, Cached: true})

	var lookup struct {
		Type string             `json:"type"`
		Data domain.LookupEvent `json:"data"`
	}
	if err := conn.ReadJSON(&lookup); err != nil {
		t.Fatalf("read: %v", err)
	}
	if lookup.Type != MessageTypeLookup || lookup.Data.ID != "e2" || !lookup.Data.Cached {
		t.Fatalf("unexpected lookup message %+v", lookup)
	}
}
