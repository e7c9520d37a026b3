package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, maxBackoff, exponentialBackoff(40))
}

func TestIsConnectionError(t *testing.T) {
	for _, err := range []error{
		amqp091.ErrClosed,
		errors.New("dial tcp: connection refused"),
		errors.New("unexpected EOF"),
		errors.New("write: broken pipe"),
		errors.New("Exception (504) Reason: \"channel/connection is not open\""),
	} {
		assert.True(t, isConnectionError(err), err.Error())
	}
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("row event missing id or op")))
}

func TestCircuitBreaker(t *testing.T) {
	c := &Client{}
	assert.False(t, c.isCircuitOpen(), "starts closed")

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	assert.False(t, c.isCircuitOpen(), "below threshold")
	c.recordFailure()
	assert.True(t, c.isCircuitOpen(), "threshold reached")

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, c.isCircuitOpen(), "half-open after the timeout")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&c.state))

	c.recordFailure()
	assert.True(t, c.isCircuitOpen(), "one failure while half-open reopens")

	c.recordSuccess()
	assert.False(t, c.isCircuitOpen())
	assert.Zero(t, atomic.LoadInt64(&c.failureCount))
}

func TestPublishRowEventShortCircuits(t *testing.T) {
	c := &Client{exchangeName: "billtrack", queueName: "row_changes"}

	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()
	err := c.PublishRowEvent(context.Background(), "row-1", 1, OpCreate)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	c.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.PublishRowEvent(ctx, "row-1", 1, OpCreate)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingAck struct {
	acked, requeued, dropped int
}

func (a *recordingAck) Ack(uint64, bool) error { a.acked++; return nil }
func (a *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}
func (a *recordingAck) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func TestDispatch(t *testing.T) {
	valid, err := NewRowEvent("row-1", 4, OpUpdate).ToJSON()
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       recordingAck
		handled    bool
	}{
		{name: "handled event is acked", body: valid, want: recordingAck{acked: 1}, handled: true},
		{name: "handler failure is requeued", body: valid, handlerErr: errors.New("sheets down"), want: recordingAck{requeued: 1}, handled: true},
		{name: "garbage is dropped", body: []byte("not json"), want: recordingAck{dropped: 1}},
		{name: "event without op is dropped", body: []byte(`{"id":"row-1","version":1}`), want: recordingAck{dropped: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAck{}
			var got *RowEvent
			dispatch(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: tt.body},
				func(_ context.Context, e *RowEvent) error {
					got = e
					return tt.handlerErr
				})

			assert.Equal(t, tt.want, *ack)
			if tt.handled {
				require.NotNil(t, got)
				assert.Equal(t, "row-1", got.ID)
				assert.Equal(t, int64(4), got.Version)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRowEventJSON(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	b, err := (&RowEvent{ID: "abc", Version: 3, Op: OpDelete, Timestamp: at}).ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","version":3,"op":"delete","timestamp":"2024-03-09T14:05:07Z"}`, string(b))

	parsed, err := RowEventFromJSON(b)
	require.NoError(t, err)
	assert.True(t, parsed.Timestamp.Equal(at))

	e := NewRowEvent("abc", 2, OpUpload)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
}
