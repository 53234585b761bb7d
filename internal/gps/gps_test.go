package gps

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/bus"
)

const rmcLine = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"

var received = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// ParseSentence
// ---------------------------------------------------------------------------

func TestParseSentence(t *testing.T) {
	t.Parallel()

	t.Run("RMC becomes a fix", func(t *testing.T) {
		t.Parallel()
		f, err := ParseSentence(rmcLine+"\r\n", received)
		require.NoError(t, err)
		assert.InDelta(t, 51.5637, f.Latitude, 1e-4)
		assert.InDelta(t, -0.704, f.Longitude, 1e-3)
		assert.InDelta(t, 231.8, f.CourseDeg, 1e-9)
		assert.InDelta(t, 173.8, f.SpeedKnots, 1e-9)
		assert.Equal(t, received, f.Received)
		assert.True(t, f.Valid())
		assert.True(t, f.HasBearing())
	})

	t.Run("non-sentence lines are ignored", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSentence("garbage", received)
		assert.ErrorIs(t, err, ErrIgnored)
	})

	t.Run("other sentence types are ignored", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSentence("$GPGGA,015540.000,3150.68378,N,11711.93139,E,1,17,0.6,0051.6,M,0.0,M,,*58", received)
		assert.ErrorIs(t, err, ErrIgnored)
	})

	t.Run("bad checksum", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSentence("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*00", received)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrIgnored))
	})
}

func TestFixBearing(t *testing.T) {
	t.Parallel()
	assert.False(t, Fix{Validity: "V", SpeedKnots: 3}.HasBearing())
	assert.False(t, Fix{Validity: "A", SpeedKnots: 0, CourseDeg: 0}.HasBearing())
	assert.True(t, Fix{Validity: "A", SpeedKnots: 1, CourseDeg: 0}.HasBearing())
}

// ---------------------------------------------------------------------------
// FakeSource
// ---------------------------------------------------------------------------

func TestFakeSourceOnOff(t *testing.T) {
	t.Parallel()
	src := NewFakeSource()
	src.Interval = 0

	var got []Fix
	require.NoError(t, src.Start(context.Background(), func(f Fix) { got = append(got, f) }))
	assert.True(t, src.IsOn())

	assert.True(t, src.Emit(received))
	src.Off()
	src.Off()
	assert.False(t, src.Emit(received))
	src.On()
	src.On()
	assert.True(t, src.Emit(received.Add(time.Second)))

	require.Len(t, got, 2)
	assert.Equal(t, 317.0, got[0].CourseDeg)
	assert.Equal(t, "12:00:01", got[1].Time)

	src.Stop()
	assert.False(t, src.IsOn())
}

func TestFakeSourceTicks(t *testing.T) {
	t.Parallel()
	src := NewFakeSource()
	src.Interval = 5 * time.Millisecond

	fixes := make(chan Fix, 16)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx, func(f Fix) {
		select {
		case fixes <- f:
		default:
		}
	}))

	select {
	case f := <-fixes:
		assert.InDelta(t, 40.468138, f.Latitude, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no fix emitted")
	}
	cancel()
	assert.Eventually(t, func() bool { return !src.IsOn() }, time.Second, 5*time.Millisecond)
}

// ---------------------------------------------------------------------------
// MQTTSource
// ---------------------------------------------------------------------------

func TestMQTTSource(t *testing.T) {
	t.Parallel()
	lb := bus.NewLoopback()
	src := NewMQTTSource(lb, "inertial/gps")

	var got []Fix
	require.NoError(t, src.Start(context.Background(), func(f Fix) { got = append(got, f) }))
	assert.True(t, lb.Subscribed("inertial/gps"))

	payload, err := json.Marshal(Fix{Latitude: 1, Longitude: 2, CourseDeg: 90, SpeedKnots: 1, Validity: "A"})
	require.NoError(t, err)
	lb.Publish("inertial/gps", 0, false, payload)
	lb.Publish("inertial/gps", 0, false, []byte("{not json"))
	require.Len(t, got, 1)
	assert.False(t, got[0].Received.IsZero())

	src.Off()
	src.Off()
	assert.Eventually(t, func() bool { return !lb.Subscribed("inertial/gps") }, time.Second, time.Millisecond)
	lb.Publish("inertial/gps", 0, false, payload)
	assert.Len(t, got, 1)

	src.On()
	assert.Eventually(t, func() bool { return lb.Subscribed("inertial/gps") }, time.Second, time.Millisecond)
	src.Stop()
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return bus.DoneToken{Err: errors.New("not authorized")}
}

func (failingSubscriber) Unsubscribe(...string) mqtt.Token { return bus.DoneToken{} }

func TestMQTTSourceSubscribeError(t *testing.T) {
	t.Parallel()
	src := NewMQTTSource(failingSubscriber{}, "inertial/gps")
	err := src.Start(context.Background(), func(Fix) {})
	assert.ErrorContains(t, err, "not authorized")
}

// ---------------------------------------------------------------------------
// SerialSource
// ---------------------------------------------------------------------------

// pipePort is an in-memory serial port.
type pipePort struct {
	*io.PipeReader
	w *io.PipeWriter
}

func (p pipePort) Write(b []byte) (int, error) { return len(b), nil }
func (p pipePort) Close() error { return p.PipeReader.Close() }

func TestSerialSource(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		opened []*io.PipeWriter
	)
	src := NewSerialSource("/dev/null", 9600)
	src.open = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		assert.Equal(t, uint(9600), opts.BaudRate)
		r, w := io.Pipe()
		mu.Lock()
		opened = append(opened, w)
		mu.Unlock()
		return pipePort{PipeReader: r, w: w}, nil
	}
	lastWriter := func() *io.PipeWriter {
		mu.Lock()
		defer mu.Unlock()
		return opened[len(opened)-1]
	}

	fixes := make(chan Fix, 4)
	require.NoError(t, src.Start(context.Background(), func(f Fix) { fixes <- f }))
	assert.True(t, src.IsOn())

	go lastWriter().Write([]byte("$GPGSA,A,3,,,,,,16,18,,22,24,,,3.6,2.1,2.2*3C\n" + rmcLine + "\n"))
	select {
	case f := <-fixes:
		assert.InDelta(t, 231.8, f.CourseDeg, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no fix read")
	}

	src.Off()
	src.Off()
	assert.False(t, src.IsOn())

	src.On()
	src.On()
	assert.True(t, src.IsOn())
	mu.Lock()
	assert.Len(t, opened, 2)
	mu.Unlock()

	src.Stop()
	assert.False(t, src.IsOn())
	src.On()
	assert.False(t, src.IsOn(), "On after Stop stays off")
}

func TestSerialSourceOpenError(t *testing.T) {
	t.Parallel()
	src := NewSerialSource("/dev/ttyMissing", 9600)
	src.open = func(serial.OpenOptions) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}
	err := src.Start(context.Background(), func(Fix) {})
	assert.ErrorContains(t, err, "/dev/ttyMissing")
	assert.False(t, src.IsOn())
}

func TestFakeSourceRestartIgnoresStaleContext(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	src.Interval = 0

	first, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(first, func(Fix) {}))
	src.Stop()
	require.NoError(t, src.Start(context.Background(), func(Fix) {}))
	cancel()

	// the first session's watcher must not stop the second session
	time.Sleep(20 * time.Millisecond)
	assert.True(t, src.IsOn())
	assert.True(t, src.Emit(time.Now()))
}
