package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metinanaliz/internal/config"
	"metinanaliz/internal/service/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"level": "error"}}`), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "db", "app.db")}
	cfg.Paths = config.PathsConfig{
		UploadDir:  filepath.Join(dir, "uploads"),
		ResultsDir: filepath.Join(dir, "results"),
		BackupDir:  filepath.Join(dir, "backups"),
	}
	cfg.Redis.Enabled = false
	return cfg
}

func TestSettingDefaultsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers["llama"] = config.ProviderConfig{BaseURL: "http://llm:3001", APIKey: "k"}
	d := settingDefaults(cfg)
	assert.Equal(t, int64(16), d.MaxFileSizeMB)
	assert.Equal(t, "gemini", d.DefaultModel)
	assert.Equal(t, "http://llm:3001", d.LlamaAPIURL)
	assert.Equal(t, "k", d.LlamaAPIKey)
}

func TestBuildAppServesInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.store.SetSetting(context.Background(), store.SettingDefaultModel, "llama"))

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"default_model":"llama"`)
	assert.DirExists(t, cfg.Paths.UploadDir)
	assert.FileExists(t, cfg.Database.DSN)
}
