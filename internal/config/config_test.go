package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Zero(t, cfg.Tolerance)
	assert.Zero(t, cfg.PixelThreshold)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	assert.Equal(t, DefaultDebounce, cfg.Serve.Debounce)
	assert.Empty(t, cfg.ScanOptions())

	options, err := cfg.CompareOptions(nil)
	require.NoError(t, err)
	assert.Len(t, options, 6)
}

func TestParse(t *testing.T) {
	data := []byte(`
tolerance: 0.5
pixel_threshold: 16
workers: 2
exclude:
  - "**/*.tmp.png"
extensions: [png, .JPG]
ignore_hidden: true
log_level: DEBUG
serve:
  addr: "127.0.0.1:9000"
  debounce: 1s
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Tolerance)
	assert.Equal(t, uint8(16), cfg.PixelThreshold)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"**/*.tmp.png"}, cfg.Exclude)
	assert.Equal(t, []string{"png", ".JPG"}, cfg.Extensions)
	assert.True(t, cfg.IgnoreHidden)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Serve.Addr)
	assert.Equal(t, time.Second, cfg.Serve.Debounce)
	assert.Len(t, cfg.ScanOptions(), 3)
}

func TestValidate_LogLevelCase(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "WARN"
	assert.NoError(t, cfg.Validate())

	cfg.LogLevel = "Loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestWriteOptions(t *testing.T) {
	t.Run("built-in template", func(t *testing.T) {
		options, err := Default().WriteOptions()
		require.NoError(t, err)
		assert.Empty(t, options)
	})

	t.Run("custom template relative to config file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tmpl"), []byte(`{{ len .Files }} file(s)`), 0644))
		path := filepath.Join(dir, "imgdiff.yaml")
		require.NoError(t, os.WriteFile(path, []byte("template: page.tmpl\n"), 0644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "page.tmpl"), cfg.Template)

		options, err := cfg.WriteOptions()
		require.NoError(t, err)
		assert.Len(t, options, 1)
	})

	t.Run("missing template", func(t *testing.T) {
		cfg := Default()
		cfg.Template = filepath.Join(t.TempDir(), "missing.tmpl")

		_, err := cfg.WriteOptions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), cfg.Template)

		_, err = cfg.CompareOptions(nil)
		assert.Error(t, err)
	})

	t.Run("broken template", func(t *testing.T) {
		cfg := Default()
		cfg.Template = filepath.Join(t.TempDir(), "broken.tmpl")
		require.NoError(t, os.WriteFile(cfg.Template, []byte(`{{ .Files `), 0644))

		_, err := cfg.WriteOptions()
		assert.Error(t, err)
	})
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "tolerence: 1\n",
		"tolerance too big": "tolerance: 101\n",
		"negative":          "tolerance: -1\n",
		"bad glob":          "exclude: [\"[\"]\n",
		"bad level":         "log_level: loud\n",
		"bad extension":     "extensions: [txt]\n",
		"bad threshold":     "pixel_threshold: 300\n",
		"not yaml":          "tolerance: [1\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "imgdiff.yaml"))
		assert.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "imgdiff.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tolerance: 2\n"), 0644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2.0, cfg.Tolerance)
	})
}
