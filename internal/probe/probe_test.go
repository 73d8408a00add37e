package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/whiterabbit/internal/git/gittest"
)

const marker = "Welcome to Consoleland"

// fixture wires a fake repository to an append-only log file: checking out a
// revision in good makes the "server" log the marker, anything else logs a
// crash.
type fixture struct {
	backend *gittest.Backend
	logPath string
	reloads int
}

func newFixture(t *testing.T, good map[string]bool, hashes ...string) *fixture {
	t.Helper()
	f := &fixture{
		backend: gittest.NewBackend(time.Now(), hashes...),
		logPath: filepath.Join(t.TempDir(), "logs", "server.log"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.logPath), 0755))
	f.backend.OnCheckout = func(hash string) {
		content := "starting server\nTraceback: boom\n"
		if good[hash] {
			content = "starting server\n*** welcome to CONSOLELAND ***\nready\n"
		}
		appendLog(t, f.logPath, content)
	}
	return f
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func (f *fixture) probe(opts ...Option) *Probe {
	base := []Option{
		WithSettler(SettleFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })),
		WithReloadSignal(SignalFunc(func(context.Context) error {
			f.reloads++
			return nil
		})),
	}
	return New(f.backend, NewLogInspector(f.logPath, marker), append(base, opts...)...)
}

func TestProbe_MarkerPresent(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1", "r2")
	p := f.probe()

	v := p.Probe(context.Background(), "r1")

	assert.True(t, v.Present)
	assert.True(t, v.Verified)
	assert.Equal(t, StepInspect, v.Step)
	assert.Equal(t, "r1", v.Revision)
	assert.Equal(t, "r2", v.Diagnostics["previous_revision"])
	assert.Equal(t, "*** welcome to CONSOLELAND ***", v.Diagnostics["marker_line"])
	assert.Equal(t, "2", v.Diagnostics["marker_line_number"])
	assert.Equal(t, 1, f.reloads)
	assert.Equal(t, "r1", f.backend.Head())
}

func TestProbe_MarkerAbsentIsVerified(t *testing.T) {
	f := newFixture(t, nil, "r1", "r2")
	p := f.probe()

	v := p.Probe(context.Background(), "r2")

	assert.False(t, v.Present)
	assert.True(t, v.Verified)
	assert.Equal(t, "marker absent", v.Message)
	assert.Equal(t, "2", v.Diagnostics["lines_scanned"])
}

func TestProbe_EarlierMarkerNotCounted(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1", "r2", "r3")
	p := f.probe()

	good := p.Probe(context.Background(), "r1")
	require.True(t, good.Present)

	bad := p.Probe(context.Background(), "r3")
	assert.False(t, bad.Present, "marker from r1 is still in the log but predates r3")
	assert.True(t, bad.Verified)
	assert.Equal(t, "2", bad.Diagnostics["lines_scanned"])
	assert.NotEmpty(t, bad.Diagnostics["scan_offset"])

	again := p.Probe(context.Background(), "r1")
	assert.True(t, again.Present)
	assert.Equal(t, "2", again.Diagnostics["marker_line_number"], "line numbers count from the offset")
}

func TestProbe_WithoutReloadScansWholeLog(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1", "r2")
	p := f.probe(WithForceReload(false))

	p.Probe(context.Background(), "r1")
	v := p.Probe(context.Background(), "r2")

	assert.True(t, v.Present, "without a reload the whole log is the evidence")
	assert.Empty(t, v.Diagnostics["scan_offset"])
}

func TestProbe_TruncatedLogIsRescanned(t *testing.T) {
	f := newFixture(t, nil, "r1", "r2")
	appendLog(t, f.logPath, strings.Repeat("old output\n", 50))
	f.backend.OnCheckout = func(string) {
		require.NoError(t, os.WriteFile(f.logPath, []byte("Welcome to Consoleland\n"), 0644))
	}
	p := f.probe()

	v := p.Probe(context.Background(), "r1")

	assert.True(t, v.Present)
	assert.Equal(t, "true", v.Diagnostics["log_rewound"])
}

func TestProbe_CheckoutFailure(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1", "r2")
	f.backend.CheckoutErr = map[string]error{
		"r1": errors.New("error: Your local changes would be overwritten by checkout"),
	}
	p := f.probe()

	v := p.Probe(context.Background(), "r1")

	assert.False(t, v.Present)
	assert.False(t, v.Verified)
	assert.Equal(t, StepCheckout, v.Step)
	assert.Equal(t, "error: Your local changes would be overwritten by checkout", v.Diagnostics["stderr"])
	assert.Equal(t, "1", v.Diagnostics["exit_code"])
	assert.Equal(t, 0, f.reloads, "no reload after a failed checkout")
}

func TestProbe_VerificationMismatch(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1", "r2")
	f.backend.StuckRefs = map[string]bool{"r1": true}
	p := f.probe()

	v := p.Probe(context.Background(), "r1")

	assert.False(t, v.Present)
	assert.False(t, v.Verified)
	assert.Equal(t, StepVerify, v.Step)
	assert.Equal(t, "r1", v.Diagnostics["expected"])
	assert.Equal(t, "r2", v.Diagnostics["actual"])
}

func TestProbe_ForceReload(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1")

	p := f.probe()
	p.Check(context.Background(), "r1", false)
	assert.Equal(t, 0, f.reloads)

	p.Check(context.Background(), "r1", true)
	assert.Equal(t, 1, f.reloads)

	quiet := f.probe(WithForceReload(false))
	quiet.Probe(context.Background(), "r1")
	assert.Equal(t, 1, f.reloads, "Probe uses the configured default")
}

func TestProbe_ReloadFailureIsDiagnostic(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1")
	p := f.probe(WithReloadSignal(SignalFunc(func(context.Context) error {
		return errors.New("permission denied")
	})))

	v := p.Probe(context.Background(), "r1")

	assert.True(t, v.Present, "inspection still decides the verdict")
	assert.Equal(t, "permission denied", v.Diagnostics["reload_error"])
}

func TestProbe_SettleInterrupted(t *testing.T) {
	f := newFixture(t, map[string]bool{"r1": true}, "r1")
	ctx, cancel := context.WithCancel(context.Background())
	p := f.probe(WithSettler(SettleFunc(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})))

	v := p.Probe(ctx, "r1")

	assert.False(t, v.Present)
	assert.False(t, v.Verified)
	assert.Equal(t, StepSettle, v.Step)
	assert.Equal(t, context.Canceled.Error(), v.Diagnostics["settle_error"])
}

func TestProbe_SettlingIntervalPassedThrough(t *testing.T) {
	f := newFixture(t, nil, "r1")
	var got time.Duration
	p := f.probe(
		WithSettlingInterval(3*time.Second),
		WithSettler(SettleFunc(func(_ context.Context, d time.Duration) error {
			got = d
			return nil
		})),
	)

	p.Probe(context.Background(), "r1")
	assert.Equal(t, 3*time.Second, got)

	assert.Equal(t, DefaultSettlingInterval, New(f.backend, nil).interval)
}

func TestProbe_MissingLogIsUnverified(t *testing.T) {
	f := newFixture(t, nil, "r1")
	f.backend.OnCheckout = nil
	p := f.probe()

	v := p.Probe(context.Background(), "r1")

	assert.False(t, v.Present)
	assert.False(t, v.Verified)
	assert.Equal(t, StepInspect, v.Step)
	assert.Contains(t, v.Diagnostics["inspect_error"], "no such file")
}

func TestProbe_ActivityWatch(t *testing.T) {
	t.Run("writes during settle", func(t *testing.T) {
		f := newFixture(t, nil, "r1")
		p := f.probe(
			WithActivityWatch(f.logPath),
			WithSettler(SettleFunc(func(context.Context, time.Duration) error {
				appendLog(t, f.logPath, "Welcome to Consoleland\n")
				time.Sleep(200 * time.Millisecond)
				return nil
			})),
		)

		v := p.Probe(context.Background(), "r1")

		assert.True(t, v.Present)
		assert.NotEqual(t, "0", v.Diagnostics["log_writes"])
		assert.Empty(t, v.Diagnostics["log_activity"])
	})

	t.Run("silent target is flagged", func(t *testing.T) {
		f := newFixture(t, nil, "r1")
		p := f.probe(WithActivityWatch(f.logPath))

		v := p.Probe(context.Background(), "r1")

		assert.False(t, v.Present)
		assert.Equal(t, "none", v.Diagnostics["log_activity"])
	})

	t.Run("no watch without reload", func(t *testing.T) {
		f := newFixture(t, nil, "r1")
		p := f.probe(WithActivityWatch(f.logPath))

		v := p.Check(context.Background(), "r1", false)
		_, watched := v.Diagnostics["log_writes"]
		assert.False(t, watched)
	})
}
