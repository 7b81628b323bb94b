package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	m      sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.m.Lock()
	if r.err != nil {
		err := r.err
		r.err = nil
		r.m.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.m.Unlock()
		return msg, nil
	}
	r.m.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.m.Lock()
	defer r.m.Unlock()
	r.closed = true
	return nil
}

func eventMessage(t *testing.T, e Event) kafka.Message {
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(e.OrderID), Value: payload}
}

func TestConsumer_DispatchesByType(t *testing.T) {
	placed := New(OrderPlaced, "o1")
	placed.UserID = "u1"
	deleted := New(OrderDeleted, "o2")

	r := &fakeReader{msgs: []kafka.Message{eventMessage(t, placed), eventMessage(t, deleted)}}
	c := newConsumer(r, nil)

	var got []Event
	c.On(OrderPlaced, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	ctx := context.Background()
	c.processMessage(ctx)
	c.processMessage(ctx)

	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].OrderID)
	assert.Equal(t, "u1", got[0].UserID)
}

func TestConsumer_SkipsBadMessagesAndHandlerErrors(t *testing.T) {
	good := New(OrderPlaced, "o3")
	r := &fakeReader{
		err:  errors.New("broker gone"),
		msgs: []kafka.Message{{Value: []byte("{not json")}, eventMessage(t, good)},
	}
	c := newConsumer(r, nil)

	calls := 0
	c.On(OrderPlaced, func(context.Context, Event) error {
		calls++
		return errors.New("handler failed")
	})
	c.On(OrderPlaced, func(context.Context, Event) error {
		calls++
		return nil
	})

	ctx := context.Background()
	c.processMessage(ctx) // read error
	c.processMessage(ctx) // malformed payload
	c.processMessage(ctx)

	assert.Equal(t, 2, calls, "a failing handler does not stop the next one")
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}
