package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

var errConnClosed = errors.New("connection closed")

type fakeRelayConn struct {
	inbound  chan []byte
	outbound chan dto.RelayEvent
	once     sync.Once
	done     chan struct{}
}

func newFakeRelayConn() *fakeRelayConn {
	return &fakeRelayConn{
		inbound:  make(chan []byte, 8),
		outbound: make(chan dto.RelayEvent, 32),
		done:     make(chan struct{}),
	}
}

func (c *fakeRelayConn) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-c.inbound:
		return 1, raw, nil
	case <-c.done:
		return 0, nil, errConnClosed
	}
}

func (c *fakeRelayConn) WriteJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var event dto.RelayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	select {
	case c.outbound <- event:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *fakeRelayConn) WriteMessage(int, []byte) error { return nil }

func (c *fakeRelayConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeRelayConn) send(t *testing.T, frame dto.RelayClientFrame) {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	c.inbound <- raw
}

func (c *fakeRelayConn) next(t *testing.T) dto.RelayEvent {
	t.Helper()
	select {
	case event := <-c.outbound:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay event")
		return dto.RelayEvent{}
	}
}

func errorMessage(t *testing.T, event dto.RelayEvent) string {
	t.Helper()
	require.Equal(t, RelayEventError, event.Event)
	var body map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &body))
	return body["message"]
}

func connectRelay(t *testing.T, svc *relayService, userID uint, role string) *fakeRelayConn {
	t.Helper()
	conn := newFakeRelayConn()
	go svc.serve(conn, RelayConnectionOptions{UserID: userID, Role: role})
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestRelay() *relayService {
	return NewRelayService(nil, "", nil, validator.New(), testLogger()).(*relayService)
}

func TestRelaySubscribeAndPublish(t *testing.T) {
	svc := newTestRelay()

	ana := connectRelay(t, svc, 1, models.RoleStudent)
	ben := connectRelay(t, svc, 2, models.RoleStudent)

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPing})
	require.Equal(t, RelayEventPong, ana.next(t).Event)

	for _, conn := range []*fakeRelayConn{ana, ben} {
		conn.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "class:7"})
		ack := conn.next(t)
		require.Equal(t, RelayEventSubscribed, ack.Event)
		require.Equal(t, "class:7", ack.Channel)
	}
	require.Equal(t, 2, svc.hub.subscribers("class:7"))

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "class:7", Event: "chat.message", Data: json.RawMessage(`{"text":"hi"}`)})
	for _, conn := range []*fakeRelayConn{ben, ana} {
		event := conn.next(t)
		require.Equal(t, "chat.message", event.Event)
		require.JSONEq(t, `{"text":"hi"}`, string(event.Data))
	}

	require.NoError(t, svc.Publish(context.Background(), "class:7", EventAssessmentPublished, map[string]uint{"assessment_id": 3}))
	require.Equal(t, EventAssessmentPublished, ben.next(t).Event)
	require.Equal(t, EventAssessmentPublished, ana.next(t).Event)

	ben.send(t, dto.RelayClientFrame{Action: dto.RelayActionUnsubscribe, Channel: "class:7"})
	require.Equal(t, RelayEventUnsubscribed, ben.next(t).Event)
	require.Equal(t, 1, svc.hub.subscribers("class:7"))

	require.NoError(t, ana.Close())
	require.Eventually(t, func() bool { return svc.hub.subscribers("class:7") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRelayRejectsForbiddenFrames(t *testing.T) {
	svc := newTestRelay()
	ana := connectRelay(t, svc, 1, models.RoleStudent)
	teacher := connectRelay(t, svc, 9, models.RoleTeacher)

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "user:2"})
	require.Equal(t, ErrRelayNotAllowed.Error(), errorMessage(t, ana.next(t)))

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "lobby"})
	require.Equal(t, ErrRelayChannelInvalid.Error(), errorMessage(t, ana.next(t)))

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "class:1", Event: "chat.message"})
	require.Equal(t, ErrRelayNotSubscribed.Error(), errorMessage(t, ana.next(t)))

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "user:1"})
	require.Equal(t, RelayEventSubscribed, ana.next(t).Event)
	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "user:1", Event: "system.grade"})
	require.Equal(t, ErrRelayReservedEvent.Error(), errorMessage(t, ana.next(t)))

	ana.send(t, dto.RelayClientFrame{Action: "shout"})
	require.Equal(t, "invalid frame", errorMessage(t, ana.next(t)))

	ana.inbound <- []byte("{not json")
	require.Equal(t, "malformed frame", errorMessage(t, ana.next(t)))

	teacher.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "user:1"})
	require.Equal(t, RelayEventSubscribed, teacher.next(t).Event, "staff may watch student channels")
}

func TestRelayRejectsForgedServerEvents(t *testing.T) {
	svc := newTestRelay()
	ana := connectRelay(t, svc, 1, models.RoleStudent)
	ben := connectRelay(t, svc, 2, models.RoleStudent)
	for _, conn := range []*fakeRelayConn{ana, ben} {
		conn.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "assessment:4"})
		require.Equal(t, RelayEventSubscribed, conn.next(t).Event)
	}

	for _, event := range []string{EventLiveEnded, EventLiveQuestionAdvanced, EventSubmissionGraded, "live.custom"} {
		ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "assessment:4", Event: event})
		require.Equal(t, ErrRelayReservedEvent.Error(), errorMessage(t, ana.next(t)), event)
	}

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "assessment:4", Event: "chat.message"})
	require.Equal(t, "chat.message", ben.next(t).Event, "forged frames never reach other subscribers")
}

func TestRelayRejectsOversizedFrames(t *testing.T) {
	svc := newTestRelay()
	ana := connectRelay(t, svc, 1, models.RoleStudent)
	ben := connectRelay(t, svc, 2, models.RoleStudent)
	for _, conn := range []*fakeRelayConn{ana, ben} {
		conn.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "class:7"})
		require.Equal(t, RelayEventSubscribed, conn.next(t).Event)
	}

	huge, err := json.Marshal(map[string]string{"text": strings.Repeat("a", RelayMaxFrameBytes)})
	require.NoError(t, err)
	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "class:7", Event: "chat.message", Data: huge})
	require.Equal(t, ErrRelayFrameTooLarge.Error(), errorMessage(t, ana.next(t)))

	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionPublish, Channel: "class:7", Event: "chat.message", Data: json.RawMessage(`{"text":"ok"}`)})
	event := ben.next(t)
	require.JSONEq(t, `{"text":"ok"}`, string(event.Data))
}

func TestRelayClosedClientIsNotRegistered(t *testing.T) {
	svc := newTestRelay()
	client := svc.newClient(newFakeRelayConn(), RelayConnectionOptions{UserID: 1, Role: models.RoleStudent})
	client.close()

	err := svc.handleFrame(context.Background(), client, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "class:3"})
	require.NoError(t, err)
	require.Zero(t, svc.hub.subscribers("class:3"))
	require.Empty(t, client.channels())
}

func TestRelayIgnoresOwnRemoteEcho(t *testing.T) {
	svc := newTestRelay()
	ana := connectRelay(t, svc, 1, models.RoleStudent)
	ana.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "assessment:4"})
	require.Equal(t, RelayEventSubscribed, ana.next(t).Event)

	own, err := json.Marshal(relayEnvelope{Source: svc.nodeID, Event: dto.RelayEvent{Channel: "assessment:4", Event: "own"}})
	require.NoError(t, err)
	svc.handleRemote(own)

	peer, err := json.Marshal(relayEnvelope{Source: "other-node", Event: dto.RelayEvent{Channel: "assessment:4", Event: "peer"}})
	require.NoError(t, err)
	svc.handleRemote(peer)

	require.Equal(t, "peer", ana.next(t).Event)
}

func TestRelayFansOutAcrossNodesThroughRedis(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first := NewRelayService(client, "gcquest:test", nil, validator.New(), testLogger()).(*relayService)
	second := NewRelayService(client, "gcquest:test", nil, validator.New(), testLogger()).(*relayService)
	first.Start(ctx)
	second.Start(ctx)

	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(ctx, "gcquest:test:relay").Result()
		return err == nil && counts["gcquest:test:relay"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	ben := connectRelay(t, second, 2, models.RoleStudent)
	ben.send(t, dto.RelayClientFrame{Action: dto.RelayActionSubscribe, Channel: "user:2"})
	require.Equal(t, RelayEventSubscribed, ben.next(t).Event)

	require.NoError(t, first.Publish(ctx, UserChannel(2), EventSubmissionGraded, map[string]float64{"score": 9}))
	event := ben.next(t)
	require.Equal(t, EventSubmissionGraded, event.Event)
	require.JSONEq(t, `{"score":9}`, string(event.Data))
}
