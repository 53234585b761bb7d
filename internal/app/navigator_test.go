package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/anglemath"
	"github.com/relabs-tech/step_navigation/internal/calibration"
	"github.com/relabs-tech/step_navigation/internal/config"
)

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HistoryCount = 2
	cfg.CSVPath = filepath.Join(t.TempDir(), "nav.csv")
	return cfg
}

func TestSimulatedNavigatorCalibratesAndWalks(t *testing.T) {
	t.Parallel()
	cfg := fastConfig(t)
	n, err := NewNavigator(cfg, NavigatorOptions{Simulate: true, WebAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	engine := n.Service.Engine()
	require.Eventually(t, func() bool {
		return engine.CalibrationState() == calibration.Calibrated
	}, 10*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return engine.Status().DistanceMeters > 1
	}, 10*time.Second, 20*time.Millisecond)

	st := engine.Status()
	// fake GPS course 317, device compass 305
	assert.InDelta(t, 0, anglemath.Difference(anglemath.Degrees, st.CorrectionFactor, 12), 1)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, n.Close())

	b, err := os.ReadFile(cfg.CSVPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	series := map[string]bool{}
	for _, r := range rows[1:] {
		series[r[1]] = true
	}
	assert.True(t, series["correction_factor"])
	assert.True(t, series["lat"])
	assert.True(t, series["step_magnitude"])
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMockConsolePrintsEvents(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.ConsoleLogInterval = 50

	var out syncBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runMockConsole(ctx, cfg, &out) }()

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "[STEP]") && strings.Contains(s, "[STAT]") && strings.Contains(s, "[LOC ]")
	}, 8*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.NotContains(t, out.String(), "[HEAD]")
}
