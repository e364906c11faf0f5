package sensormux

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMockMuxEmitsAndCloses(t *testing.T) {
	mux := NewMockMux(10*time.Millisecond, 1)
	capture := mux.port.f.Name()

	_, ch := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	select {
	case line := <-ch:
		if _, err := ParseReading(line); err != nil {
			t.Errorf("unparsable mock line %q: %v", line, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mock sensor line")
	}

	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The subscriber channel drains any buffered lines and then closes.
	deadline := time.After(2 * time.Second)
drain:
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				break drain
			}
		case <-deadline:
			t.Fatal("subscriber channel not closed after Close")
		}
	}

	if _, err := os.Stat(capture); !os.IsNotExist(err) {
		t.Errorf("command capture file %s not removed (err=%v)", capture, err)
	}

	// Closing the underlying port again is a no-op.
	if err := mux.port.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
