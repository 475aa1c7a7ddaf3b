package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	SettingGeminiAPIKey = "gemini_api_key"
	SettingMaxFileSize  = "max_file_size"
	SettingDefaultModel = "default_model"
	SettingLlamaAPIURL  = "llama_api_url"
	SettingLlamaAPIKey  = "llama_api_key"
)

var secretSettings = map[string]bool{
	SettingGeminiAPIKey: true,
	SettingLlamaAPIKey:  true,
}

// EffectiveSettings is the settings table resolved against named defaults.
type EffectiveSettings struct {
	GeminiAPIKey  string `json:"gemini_api_key"`
	MaxFileSizeMB int64  `json:"max_file_size"`
	DefaultModel  string `json:"default_model"`
	LlamaAPIURL   string `json:"llama_api_url"`
	LlamaAPIKey   string `json:"llama_api_key"`
}

// SettingDefaults supplies the value of every setting that was never saved.
type SettingDefaults struct {
	GeminiAPIKey  string
	MaxFileSizeMB int64
	DefaultModel  string
	LlamaAPIURL   string
	LlamaAPIKey   string
}

// DefaultSettingDefaults mirrors the configuration defaults.
var DefaultSettingDefaults = SettingDefaults{
	MaxFileSizeMB: 16,
	DefaultModel:  "gemini",
	LlamaAPIURL:   "http://localhost:3001",
}

// MaxUploadBytes converts the megabyte limit to bytes.
func (e EffectiveSettings) MaxUploadBytes() int64 {
	return e.MaxFileSizeMB << 20
}

// SetSetting stores value under key, replacing any previous value.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("setting key is required")
	}
	if secretSettings[key] && s.sealer != nil && value != "" {
		sealed, err := s.sealer.Seal(key, value)
		if err != nil {
			return err
		}
		value = sealed
	}
	query := "INSERT INTO app_settings (`key`, value) VALUES (?, ?) " +
		"ON CONFLICT(`key`) DO UPDATE SET value = excluded.value"
	if s.isMySQL() {
		query = "INSERT INTO app_settings (`key`, value) VALUES (?, ?) " +
			"ON DUPLICATE KEY UPDATE value = VALUES(value)"
	}
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}

// Setting returns the stored value for key or def when it was never saved.
func (s *Service) Setting(ctx context.Context, key, def string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE `key` = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return "", fmt.Errorf("lookup setting %s: %w", key, err)
	}
	if !value.Valid {
		return def, nil
	}
	if !secretSettings[key] || !isSealed(value.String) {
		return value.String, nil
	}
	if s.sealer == nil {
		s.log.WithField("key", key).Warn("sealed setting ignored, secret key not configured")
		return def, nil
	}
	plain, err := s.sealer.Open(key, value.String)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("sealed setting ignored")
		return def, nil
	}
	return plain, nil
}

// Settings resolves every known setting against defaults.
func (s *Service) Settings(ctx context.Context, defaults SettingDefaults) (EffectiveSettings, error) {
	var (
		out EffectiveSettings
		err error
	)
	if out.GeminiAPIKey, err = s.Setting(ctx, SettingGeminiAPIKey, defaults.GeminiAPIKey); err != nil {
		return out, err
	}
	if out.DefaultModel, err = s.Setting(ctx, SettingDefaultModel, defaults.DefaultModel); err != nil {
		return out, err
	}
	if out.LlamaAPIURL, err = s.Setting(ctx, SettingLlamaAPIURL, defaults.LlamaAPIURL); err != nil {
		return out, err
	}
	if out.LlamaAPIKey, err = s.Setting(ctx, SettingLlamaAPIKey, defaults.LlamaAPIKey); err != nil {
		return out, err
	}
	raw, err := s.Setting(ctx, SettingMaxFileSize, "")
	if err != nil {
		return out, err
	}
	out.MaxFileSizeMB = defaults.MaxFileSizeMB
	if raw != "" {
		if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && n > 0 {
			out.MaxFileSizeMB = n
		} else {
			s.log.WithField("value", raw).Warn("ignoring invalid max_file_size setting")
		}
	}
	return out, nil
}
