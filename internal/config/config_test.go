package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "global_food_prices.zip", cfg.Data.Path)
	assert.Equal(t, "latin1", cfg.Data.Encoding)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Query.PreviewRows)
	assert.Equal(t, EngineColumnar, cfg.Query.Engine)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Log.MaxSizeMB)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodprices.yaml")
	content := `
data:
  path: /data/wfp.zip
  encoding: utf-8
query:
  engine: duckdb
  preview_rows: 20
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/data/wfp.zip", cfg.Data.Path)
	assert.Equal(t, "utf-8", cfg.Data.Encoding)
	assert.Equal(t, EngineDuckDB, cfg.Query.Engine)
	assert.Equal(t, 20, cfg.Query.PreviewRows)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FOODPRICES_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("FOODPRICES_QUERY_ENGINE", "duckdb")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, EngineDuckDB, cfg.Query.Engine)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{name: "unknown engine", key: "query.engine", value: "sqlite", wantErr: "Engine"},
		{name: "negative preview", key: "query.preview_rows", value: -1, wantErr: "PreviewRows"},
		{name: "huge preview", key: "query.preview_rows", value: 5000, wantErr: "PreviewRows"},
		{name: "unknown encoding", key: "data.encoding", value: "ebcdic", wantErr: "Encoding"},
		{name: "empty data path", key: "data.path", value: "", wantErr: "Path"},
		{name: "unknown log level", key: "log.level", value: "verbose", wantErr: "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.value)

			_, err := Load(v, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEncodingAliases(t *testing.T) {
	for _, enc := range []string{"latin1", "latin-1", "iso-8859-1", "iso8859-1", "windows-1252", "cp1252", "utf-8", "utf8"} {
		t.Run(enc, func(t *testing.T) {
			v := New()
			v.Set("data.encoding", enc)

			cfg, err := Load(v, "")
			require.NoError(t, err)
			assert.Equal(t, enc, cfg.Data.Encoding)
		})
	}
}
