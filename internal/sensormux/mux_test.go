package sensormux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewMux(NewTestablePort())

	id1, ch1 := mux.Subscribe()
	id2, _ := mux.Subscribe()
	if id1 == id2 {
		t.Error("subscriber IDs not unique")
	}

	mux.Unsubscribe(id1)
	select {
	case _, ok := <-ch1:
		if ok {
			t.Error("expected channel closed after Unsubscribe")
		}
	default:
		t.Error("channel not closed after Unsubscribe")
	}

	// Unsubscribing an unknown ID is a no-op.
	mux.Unsubscribe("missing")
}

func TestSendCommandAppendsNewline(t *testing.T) {
	port := NewTestablePort()
	mux := NewMux(port)

	if err := mux.SendCommand("R=500"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "R=500\n" {
		t.Errorf("written = %q, want %q", got, "R=500\n")
	}

	if err := mux.SendCommand("OA\n"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "R=500\nOA\n" {
		t.Errorf("written = %q, double newline?", got)
	}
}

func TestSendCommandWriteError(t *testing.T) {
	port := NewTestablePort()
	port.WriteError = errors.New("device gone")
	mux := NewMux(port)

	if err := mux.SendCommand("R=500"); err == nil {
		t.Error("expected error from failing port")
	}
}

func TestInitializeSendsStartCommands(t *testing.T) {
	port := NewTestablePort()
	mux := NewMux(port)

	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	written := string(port.GetWrittenData())
	for _, want := range []string{"C=", "R=500", "OA", "OP", "OU"} {
		if !strings.Contains(written, want) {
			t.Errorf("Initialize output missing %q: %q", want, written)
		}
	}
}

func TestMonitorFanout(t *testing.T) {
	port := NewTestablePort()
	port.BlockReads = true
	mux := NewMux(port)

	_, ch := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	// Fan-out is lossy by design, so keep feeding the pair of lines
	// until the subscriber has observed both.
	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		port.AddReadData([]byte("IMU,500,0.8123\nGPS,500,12.34\n"))
		select {
		case line := <-ch:
			switch line {
			case "IMU,500,0.8123", "GPS,500,12.34":
				seen[line] = true
			default:
				t.Fatalf("unexpected line %q", line)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for fanout, saw %v", seen)
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestMonitorSkipsSlowSubscribers(t *testing.T) {
	port := NewTestablePort()
	port.BlockReads = true
	mux := NewMux(port)

	// Subscriber that never reads must not block the loop.
	mux.Subscribe()
	_, ch := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	port.AddReadData([]byte("IMU,500,0.8\n"))

	// The reading subscriber may or may not win the race for the first
	// line, but the loop stays live: a second line arrives.
	port.AddReadData([]byte("GPS,500,1.0\n"))
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("fanout blocked by slow subscriber")
	}
}

func TestCloseClosesSubscribersAndPort(t *testing.T) {
	port := NewTestablePort()
	mux := NewMux(port)

	_, ch := mux.Subscribe()
	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}
	if !port.Closed {
		t.Error("port not closed")
	}
}

func TestMockPortFactory(t *testing.T) {
	port := NewTestablePort()
	factory := NewMockPortFactory(port)

	got, err := factory.Open("/dev/ttyUSB0", PortOptions{BaudRate: 9600})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != Porter(port) {
		t.Error("factory returned wrong port")
	}

	call := factory.LastCall()
	if call == nil || call.Path != "/dev/ttyUSB0" || call.Opts.BaudRate != 9600 {
		t.Errorf("LastCall = %+v", call)
	}

	factory.Error = errors.New("no device")
	if _, err := factory.Open("/dev/ttyUSB1", PortOptions{}); err == nil {
		t.Error("expected configured error")
	}
}
