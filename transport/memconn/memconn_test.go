package memconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrjvadi/go-dnet/transport"
)

func TestPipe_FramesInOrder(t *testing.T) {
	p := NewPipe(8)
	got := make(chan string, 8)
	closed := make(chan struct{})
	opened := false
	conn, err := p.Dial(context.Background(), "mem://a", transport.Events{
		Frame: func(raw []byte) { got <- string(raw) },
		Open:  func() { opened = true },
		Close: func() { close(closed) },
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if !opened {
		t.Error("Open not called during Dial")
	}

	for _, f := range []string{"1", "2", "3"} {
		if err := p.Deliver([]byte(f)); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
	}
	for _, want := range []string{"1", "2", "3"} {
		select {
		case f := <-got:
			if f != want {
				t.Fatalf("frame = %q, want %q", f, want)
			}
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	<-closed
	if err := conn.Send(context.Background(), []byte("x")); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send() after Close error = %v", err)
	}
	// the inbox still has room, so a closed conn must win every time
	for i := 0; i < 100; i++ {
		if err := p.Deliver([]byte("4")); !errors.Is(err, transport.ErrClosed) {
			t.Fatalf("Deliver() after Close error = %v", err)
		}
	}
}

func TestPipe_SendAndFailures(t *testing.T) {
	p := NewPipe(1)
	if err := p.Deliver([]byte("x")); !errors.Is(err, ErrNoConn) {
		t.Errorf("Deliver() before Dial error = %v", err)
	}

	dialErr := errors.New("no route")
	p.FailDial(dialErr)
	if _, err := p.Dial(context.Background(), "mem://a", transport.Events{}); !errors.Is(err, dialErr) {
		t.Fatalf("Dial() error = %v", err)
	}
	p.FailDial(nil)

	failed := make(chan error, 1)
	conn, err := p.Dial(context.Background(), "mem://a", transport.Events{Error: func(err error) { failed <- err }})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := conn.Send(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := string(<-p.Sent()); got != "hello" {
		t.Errorf("sent %q", got)
	}

	sendErr := errors.New("full")
	p.FailSend(sendErr)
	if err := conn.Send(context.Background(), []byte("x")); !errors.Is(err, sendErr) {
		t.Errorf("Send() error = %v", err)
	}
	p.FailSend(nil)

	// buffer of one: the second send waits on ctx
	_ = conn.Send(context.Background(), []byte("a"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := conn.Send(ctx, []byte("b")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("blocked Send() error = %v", err)
	}

	boom := errors.New("boom")
	p.Fail(boom)
	if err := <-failed; !errors.Is(err, boom) {
		t.Errorf("Error hook got %v", err)
	}
}
