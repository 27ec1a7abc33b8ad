package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu      sync.Mutex
	got     []StatusMessage
	fail    bool
	closed  bool
	written chan struct{}
}

func newFakeConn(fail bool) *fakeConn {
	return &fakeConn{fail: fail, written: make(chan struct{}, 8)}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.written <- struct{}{} }()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.got = append(c.got, v.(StatusMessage))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func waitWrite(t *testing.T, c *fakeConn) {
	t.Helper()
	select {
	case <-c.written:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func TestHubDeliversToSubscribersOfReference(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	watching := newFakeConn(false)
	other := newFakeConn(false)
	hub.Register(&Client{RRR: "290019681818", Conn: watching})
	hub.Register(&Client{RRR: "111111111111", Conn: other})

	hub.PaymentStatusChanged(ctx, models.PaymentStatusChange{
		RRR: "290019681818", Previous: models.PaymentStatusPending, Current: models.PaymentStatusCompleted,
	})
	waitWrite(t, watching)

	watching.mu.Lock()
	defer watching.mu.Unlock()
	if len(watching.got) != 1 || watching.got[0].Status != "completed" {
		t.Errorf("got %+v", watching.got)
	}
	select {
	case <-other.written:
		t.Error("subscriber of another reference was notified")
	default:
	}
}

func TestHubDropsBrokenConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	broken := newFakeConn(true)
	hub.Register(&Client{RRR: "1", Conn: broken})
	hub.PaymentStatusChanged(ctx, models.PaymentStatusChange{RRR: "1", Current: models.PaymentStatusFailed})
	waitWrite(t, broken)

	hub.PaymentStatusChanged(ctx, models.PaymentStatusChange{RRR: "1", Current: models.PaymentStatusFailed})
	select {
	case <-broken.written:
		t.Error("broken connection written to after removal")
	case <-time.After(100 * time.Millisecond):
	}

	broken.mu.Lock()
	defer broken.mu.Unlock()
	if !broken.closed {
		t.Error("broken connection not closed")
	}
}
