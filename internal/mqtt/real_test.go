package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/gesture"
)

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of paho.Client the publisher touches.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	sent         []sentMsg
	publishErr   error
	stalled      bool // tokens never complete
	disconnected bool

	// onCheck, if set, runs once after the next IsConnectionOpen has read
	// the state, as a reconnect landing right after the check would.
	onCheck func()
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	open, hook := c.open, c.onCheck
	c.onCheck = nil
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.stalled {
		return &stalledToken{}
	}
	return &doneToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.open = false
}

func (c *fakeClient) messages() []sentMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMsg(nil), c.sent...)
}

type doneToken struct {
	paho.Token
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

type stalledToken struct {
	paho.Token
}

func (t *stalledToken) WaitTimeout(time.Duration) bool { return false }
func (t *stalledToken) Error() error                   { return nil }

func newTestPublisher(buffer int) (*RealPublisher, *fakeClient) {
	client := &fakeClient{open: true}
	opts := Options{TopicPrefix: "test/button", BufferSize: buffer}.withDefaults()
	return newPublisher(client, opts), client
}

func TestRealPublisherPublishesToTopics(t *testing.T) {
	p, client := newTestPublisher(0)

	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1}))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP", Retained: true}))

	sent := client.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "test/button/events", sent[0].topic)
	assert.Equal(t, byte(1), sent[0].qos)
	assert.False(t, sent[0].retained)
	assert.Contains(t, string(sent[0].payload), `"event":"CLICK"`)

	assert.Equal(t, "test/button/system", sent[1].topic)
	assert.True(t, sent[1].retained)
}

func TestRealPublisherOfflineWithoutBuffer(t *testing.T) {
	p, client := newTestPublisher(0)
	client.setOpen(false)

	err := p.Publish(gesture.Event{Type: gesture.EventClick, Clicks: 1})
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, client.messages())
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherBuffersAndReplays(t *testing.T) {
	p, client := newTestPublisher(10)
	client.setOpen(false)

	for _, typ := range []gesture.EventType{gesture.EventClick, gesture.EventHoldStart, gesture.EventHoldEnd} {
		require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: typ}))
	}
	assert.Equal(t, 3, p.Buffered())
	assert.Empty(t, client.messages())
	assert.False(t, p.IsConnected())

	client.setOpen(true)
	p.replay()

	sent := client.messages()
	require.Len(t, sent, 3)
	assert.Contains(t, string(sent[0].payload), "CLICK")
	assert.Contains(t, string(sent[1].payload), "HOLD_START")
	assert.Contains(t, string(sent[2].payload), "HOLD_END")
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherBufferDropsOldest(t *testing.T) {
	p, client := newTestPublisher(2)
	client.setOpen(false)

	for i := 1; i <= 4; i++ {
		require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.ClickEventType(i), Clicks: i}))
	}
	client.setOpen(true)
	p.replay()

	sent := client.messages()
	require.Len(t, sent, 2)
	assert.Contains(t, string(sent[0].payload), `"clicks":3`)
	assert.Contains(t, string(sent[1].payload), `"clicks":4`)
}

func TestRealPublisherPublishError(t *testing.T) {
	p, client := newTestPublisher(0)
	client.publishErr = errors.New("not authorized")

	err := p.Publish(gesture.Event{Type: gesture.EventClick, Clicks: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}

func TestRealPublisherPublishTimeout(t *testing.T) {
	p, client := newTestPublisher(0)
	client.stalled = true

	err := p.Publish(gesture.Event{Type: gesture.EventClick, Clicks: 1})
	require.ErrorIs(t, err, ErrPublishTimeout)
	assert.Len(t, client.messages(), 1)
}

func TestRealPublisherReconnectDuringPublish(t *testing.T) {
	p, client := newTestPublisher(10)
	client.setOpen(false)

	replayed := make(chan struct{})
	client.onCheck = func() {
		// The broker comes back between the offline check and the push.
		client.setOpen(true)
		go func() {
			p.replay()
			close(replayed)
		}()
	}

	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1}))

	select {
	case <-replayed:
	case <-time.After(time.Second):
		t.Fatal("replay did not finish")
	}

	sent := client.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0].payload), `"event":"CLICK"`)
	assert.Zero(t, p.Buffered())
	assert.True(t, p.IsConnected())
}

func TestRealPublisherBacklogBeforeFreshPublish(t *testing.T) {
	p, client := newTestPublisher(10)
	client.setOpen(false)

	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventHoldStart}))
	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventHoldEnd}))

	// Connected, but the OnConnect replay has not run yet.
	client.setOpen(true)
	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1}))

	sent := client.messages()
	require.Len(t, sent, 3)
	assert.Contains(t, string(sent[0].payload), "HOLD_START")
	assert.Contains(t, string(sent[1].payload), "HOLD_END")
	assert.Contains(t, string(sent[2].payload), "CLICK")
	assert.Zero(t, p.Buffered())

	p.replay()
	assert.Len(t, client.messages(), 3)
}

func TestRealPublisherReplayKeepsRestWhenConnectionDrops(t *testing.T) {
	p, client := newTestPublisher(10)
	client.setOpen(false)

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.ClickEventType(i), Clicks: i}))
	}

	// Drops again right after the first message goes out.
	client.setOpen(true)
	client.onCheck = func() { client.setOpen(false) }
	p.replay()

	sent := client.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0].payload), `"clicks":1`)
	assert.Equal(t, 2, p.Buffered())
}

func TestRealPublisherCBOR(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client, Options{Encoding: EncodingCBOR}.withDefaults())

	require.NoError(t, p.Publish(gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1}))
	sent := client.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "home/button/sensor/events", sent[0].topic)
	assert.NotEqual(t, byte('{'), sent[0].payload[0])
}

func TestRealPublisherClose(t *testing.T) {
	p, client := newTestPublisher(0)
	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{Broker: "tcp://localhost:1883"}.withDefaults()
	assert.Equal(t, DefaultTopicPrefix, o.TopicPrefix)
	assert.Equal(t, EncodingJSON, o.Encoding)
	assert.True(t, strings.HasPrefix(o.ClientID, "button-sensor-"))

	kept := Options{ClientID: "hall"}.withDefaults()
	assert.Equal(t, "hall", kept.ClientID)
}

func TestNewClientIDUnique(t *testing.T) {
	a, b := NewClientID(), NewClientID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("button-sensor-")+36)
}
