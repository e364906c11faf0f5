package sensormux

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
)

// MockPort implements Porter for development without hardware. Reads
// come from the generator pipe; writes land in a temp file so issued
// commands can be inspected while developing.
type MockPort struct {
	io.Reader

	f         *os.File
	done      chan struct{}
	closeOnce sync.Once
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	return m.f.Write(p)
}

// Close stops the generator goroutine and removes the command capture
// file. Safe to call more than once.
func (m *MockPort) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		name := m.f.Name()
		err = m.f.Close()
		if rmErr := os.Remove(name); rmErr != nil && err == nil {
			err = rmErr
		}
	})
	return err
}

// NewMockMux creates a Mux backed by a synthetic navigation board. It
// emits IMU and GPS line pairs at the given interval following an
// accelerate/cruise/brake trajectory with Gaussian sensor noise, and
// captures written commands in a temp file until the mux is closed.
func NewMockMux(interval time.Duration, seed int64) *Mux[*MockPort] {
	r, w := io.Pipe()
	f, err := os.CreateTemp("", "mock_sensor_port")
	if err != nil {
		panic("failed to create temp file for mock sensor port: " + err.Error())
	}
	monitoring.Logf("writing mock sensor port received input at %s", f.Name())

	mockPort := &MockPort{
		Reader: r,
		f:      f,
		done:   make(chan struct{}),
	}

	go func() {
		defer w.Close()

		rng := rand.New(rand.NewSource(seed))
		dt := interval.Seconds()
		var pos, vel float64
		var uptime int64

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-mockPort.done:
				return
			case <-ticker.C:
			}

			// 60 second loop: accelerate, cruise, brake.
			phase := float64(uptime%60000) / 1000
			var acc float64
			switch {
			case phase < 20:
				acc = 0.8
			case phase < 40:
				acc = 0.0
			default:
				acc = -0.6
			}

			pos += vel*dt + 0.5*acc*dt*dt
			vel += acc * dt
			uptime += interval.Milliseconds()

			imu := acc + rng.NormFloat64()*0.05
			gps := pos + rng.NormFloat64()*1.5

			fmt.Fprintf(w, "IMU,%d,%.4f\n", uptime, imu)
			fmt.Fprintf(w, "GPS,%d,%.4f\n", uptime, gps)
		}
	}()

	return NewMux(mockPort)
}

// TestablePort implements Porter with configurable behaviour for
// testing. It provides fine-grained control over reads, writes, errors,
// and latency.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	// readCond is used to signal blocked readers
	readCond *sync.Cond
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

// Read reads from the read buffer, optionally blocking until data arrives.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("sensor port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("sensor port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally returning a configured error.
func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("sensor port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast() // Wake up any blocked readers

	return t.CloseError
}

// SetReadTimeout implements TimeoutPorter.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal() // Wake up a blocked reader
}

// GetWrittenData returns all data written to the port.
func (t *TestablePort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// Reset clears all buffers and resets state.
func (t *TestablePort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Reset()
	t.WriteBuffer.Reset()
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.Closed = false
	t.ReadError = nil
	t.WriteError = nil
	t.CloseError = nil
}

// MockPortFactory implements PortFactory for testing.
type MockPortFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port Porter

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Opts PortOptions
}

// NewMockPortFactory creates a new MockPortFactory.
func NewMockPortFactory(port Porter) *MockPortFactory {
	return &MockPortFactory{Port: port}
}

// Open returns the configured port or error.
func (f *MockPortFactory) Open(path string, opts PortOptions) (Porter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Opts: opts})

	if f.Error != nil {
		return nil, f.Error
	}

	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
