package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/config"
	"github.com/aretw0/statecraft/pkg/adapters/file"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = 7
	cfg.Store.Backend = "file"
	cfg.Store.Dir = t.TempDir()
	return cfg
}

func TestOpenStore(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		b, err := OpenStore(config.StoreConfig{Backend: "none"})
		require.NoError(t, err)
		assert.Nil(t, b.Store)
		assert.NoError(t, b.Close())
	})

	t.Run("Memory", func(t *testing.T) {
		b, err := OpenStore(config.StoreConfig{Backend: "memory"})
		require.NoError(t, err)
		assert.NotNil(t, b.Store)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := OpenStore(config.StoreConfig{Backend: "s3"})
		assert.Error(t, err)
	})

	t.Run("BadKey", func(t *testing.T) {
		_, err := OpenStore(config.StoreConfig{Backend: "memory", EncryptionKey: "c2hvcnQ="})
		assert.Error(t, err)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := OpenStore(config.StoreConfig{
			Backend: "redis",
			Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "test:", Lock: true},
		})
		require.NoError(t, err)
		defer b.Close()
		assert.Len(t, b.Options, 1, "lock option")

		rec, err := domain.NewRecord("navigation", "active", map[string]int{"index": 2}, time.Now())
		require.NoError(t, err)
		require.NoError(t, b.Store.Save(context.Background(), "navigation", rec))

		keys, err := b.Store.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"navigation"}, keys)
	})

	t.Run("EncryptedFile", func(t *testing.T) {
		dir := t.TempDir()
		key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 32))
		b, err := OpenStore(config.StoreConfig{Backend: "file", Dir: dir, EncryptionKey: key})
		require.NoError(t, err)
		ctx := context.Background()

		rec, err := domain.NewRecord("form", "editing", map[string]string{"name": "Ada Lovelace"}, time.Now())
		require.NoError(t, err)
		require.NoError(t, b.Store.Save(ctx, "form", rec))

		raw, err := os.ReadFile(filepath.Join(dir, "form.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "Ada Lovelace")

		sealed, err := file.New(dir).Load(ctx, "form")
		require.NoError(t, err)
		assert.Equal(t, middleware.EncryptedState, sealed.State)

		loaded, err := b.Store.Load(ctx, "form")
		require.NoError(t, err)
		assert.Equal(t, "editing", loaded.State)
		assert.Contains(t, string(loaded.Context), "Ada Lovelace")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "error", "boom")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"err":"boom"`)

	_, err = NewLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestNewRuntime_RestoresAcrossRuns(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()

	first, err := NewRuntime(cfg, nil)
	require.NoError(t, err)
	first.System.Start(ctx)
	_, err = first.System.Send(ctx, statecraft.MachineNavigation, navigation.Next())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewRuntime(cfg, nil)
	require.NoError(t, err)
	second.System.Start(ctx)
	defer second.Close()
	assert.Equal(t, "/introduction/about-me", second.System.Navigation.Path())
}

func TestNewRuntime_DebugAudit(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Store.Backend = "none"
	rt, err := NewRuntime(cfg, logger)
	require.NoError(t, err)
	rt.System.Start(context.Background())
	defer rt.Close()

	_, err = rt.System.Send(context.Background(), statecraft.MachineNavigation, navigation.Next())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=transition")
	assert.Nil(t, rt.System.Persistence())
}

func TestRunDemo(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "none"
	cfg.Seed = 3
	rt, err := NewRuntime(cfg, nil)
	require.NoError(t, err)
	rt.System.Start(context.Background())
	defer rt.Close()

	var out bytes.Buffer
	err = RunDemo(context.Background(), rt.System, DemoOptions{
		Interval: 10 * time.Millisecond,
		Duration: 80 * time.Millisecond,
		Tour:     true,
		Out:      &out,
	})
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, ">>> Connecting..."))
	assert.Contains(t, text, "## Network")
	assert.Contains(t, text, "Demo started")
	assert.NotEqual(t, "/", rt.System.Navigation.Path())
}

func TestStopMessage(t *testing.T) {
	assert.Equal(t, "Stopped.", StopMessage(nil))
	assert.Equal(t, "Interrupted.", StopMessage(os.Interrupt))
}

func TestSignalContext_CancelledElsewhere(t *testing.T) {
	sc := NewSignalContext(context.Background())
	sc.Cancel()
	<-sc.Done()
	assert.Nil(t, sc.Signal())
}
