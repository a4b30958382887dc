package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xaenox/safeguard/internal/alert"
	"github.com/xaenox/safeguard/internal/storage"
	"github.com/xaenox/safeguard/pkg/config"
)

func TestScanCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"scan", "--under13", "I want to hurt myself, call 555-123-4567"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		scanUnder13, scanStrict, scanFormat = false, false, "json"
	})

	require.NoError(t, rootCmd.Execute())

	var report struct {
		Filter struct {
			IsBlocked      bool   `json:"is_blocked"`
			CleanedContent string `json:"cleaned_content"`
		} `json:"filter"`
		Detector struct {
			HasConcern  bool   `json:"has_concern"`
			ConcernType string `json:"concern_type"`
		} `json:"detector"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.Filter.IsBlocked)
	assert.NotContains(t, report.Filter.CleanedContent, "555-123-4567")
	assert.True(t, report.Detector.HasConcern)
	assert.Equal(t, "self_harm_language", report.Detector.ConcernType)
}

func TestScanCommandYAML(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"scan", "--format", "yaml", "everyone", "hates", "me"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		scanUnder13, scanStrict, scanFormat = false, false, "json"
	})

	require.NoError(t, rootCmd.Execute())

	var report scanReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.Detector.HasConcern)
	assert.Equal(t, "bullying", report.Detector.ConcernType)
}

func TestRulesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"rules", "--format", "json"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rulesFormat = "yaml"
	})

	require.NoError(t, rootCmd.Execute())

	var entries []ruleEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, ruleEntry{
		Category: "phone",
		Label:    "phone number",
		Token:    "[PHONE REMOVED]",
		Scope:    "personal_info",
		Pattern:  entries[0].Pattern,
	}, entries[0])
	assert.Contains(t, entries[0].Pattern, `\d{4}`)
}

func TestBuildStorage(t *testing.T) {
	store, err := buildStorage(context.Background(), config.DatabaseConfig{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStorage{}, store)

	store, err = buildStorage(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir() + "/safeguard.db",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLStorage{}, store)
	require.NoError(t, store.Close())
}

func TestBuildDispatcher(t *testing.T) {
	d, err := buildDispatcher(config.AlertsConfig{Provider: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &alert.LogDispatcher{}, d)

	d, err = buildDispatcher(config.AlertsConfig{
		Provider: "smtp",
		SMTP:     config.SMTPConfig{Host: "mail.school.test", Port: 25, From: "safety@school.test"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &alert.SMTPDispatcher{}, d)
}
