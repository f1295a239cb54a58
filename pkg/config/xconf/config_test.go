package xconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineConf struct {
	BatchSize int    `koanf:"batch_size"`
	Service   string `koanf:"service"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("loads yaml file", func(t *testing.T) {
		path := writeFile(t, "app.yaml", "sync:\n  batch_size: 25\n  service: remote\n")

		cfg, err := New(path)
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, cfg.Format())
		assert.Equal(t, path, cfg.Path())

		var ec engineConf
		require.NoError(t, cfg.Unmarshal("sync", &ec))
		assert.Equal(t, 25, ec.BatchSize)
		assert.Equal(t, "remote", ec.Service)
	})

	t.Run("loads json file", func(t *testing.T) {
		path := writeFile(t, "app.json", `{"sync":{"batch_size":5,"service":"api"}}`)

		cfg, err := New(path)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, cfg.Format())
		assert.Equal(t, 5, cfg.Client().Int("sync.batch_size"))
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("rejects unknown extension", func(t *testing.T) {
		_, err := New("app.toml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("reports missing file", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, ErrLoadFailed)
	})

	t.Run("reports malformed content", func(t *testing.T) {
		path := writeFile(t, "bad.json", "{not json")
		_, err := New(path)
		assert.ErrorIs(t, err, ErrParseFailed)
	})
}

func TestNewFromBytes(t *testing.T) {
	t.Run("loads yaml bytes", func(t *testing.T) {
		cfg, err := NewFromBytes([]byte("service: remote\n"), FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, "remote", cfg.Client().String("service"))
		assert.Empty(t, cfg.Path())
	})

	t.Run("empty data yields empty config", func(t *testing.T) {
		cfg, err := NewFromBytes(nil, FormatJSON)
		require.NoError(t, err)

		var ec engineConf
		require.NoError(t, cfg.Unmarshal("", &ec))
		assert.Zero(t, ec)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := NewFromBytes([]byte("{}"), Format("toml"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("not reloadable", func(t *testing.T) {
		cfg, err := NewFromBytes([]byte("{}"), FormatJSON)
		require.NoError(t, err)
		assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)
	})
}

func TestReload(t *testing.T) {
	t.Run("picks up file changes", func(t *testing.T) {
		path := writeFile(t, "app.yaml", "service: one\n")
		cfg, err := New(path)
		require.NoError(t, err)
		assert.Equal(t, "one", cfg.Client().String("service"))

		require.NoError(t, os.WriteFile(path, []byte("service: two\n"), 0o600))
		require.NoError(t, cfg.Reload())
		assert.Equal(t, "two", cfg.Client().String("service"))
	})

	t.Run("keeps old config on parse failure", func(t *testing.T) {
		path := writeFile(t, "app.json", `{"service":"one"}`)
		cfg, err := New(path)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
		assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
		assert.Equal(t, "one", cfg.Client().String("service"))
	})
}

func TestOptions(t *testing.T) {
	t.Run("custom delim", func(t *testing.T) {
		cfg, err := NewFromBytes([]byte(`{"a":{"b":1}}`), FormatJSON, WithDelim("/"))
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Client().Int("a/b"))
	})

	t.Run("custom tag", func(t *testing.T) {
		cfg, err := NewFromBytes([]byte(`{"batch_size":7}`), FormatJSON, WithTag("json"))
		require.NoError(t, err)

		var target struct {
			BatchSize int `json:"batch_size"`
		}
		require.NoError(t, cfg.Unmarshal("", &target))
		assert.Equal(t, 7, target.BatchSize)
	})
}
