package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/internal/testutils"
	"github.com/aretw0/formflow/pkg/adapters/file"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/adapters/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join("..", "..", "examples", "registration", "registration.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, `Form "registration" is valid!`)
}

func TestValidate_ReportsIssues(t *testing.T) {
	path := testutils.WriteFile(t, t.TempDir(), "bad.yaml", `
form: { name: bad, version: "1", languages: [en], default_language: en }
questions:
  - { id: a, type: text, order: 1, title: { en: "A?" } }
  - { id: a, type: colour, order: 1, title: { en: "B?" } }
`)
	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "colour")
}

func TestFlagFallsBackToEnv(t *testing.T) {
	t.Setenv("FORMFLOW_ADDR", ":9999")
	t.Setenv("FORMFLOW_REDIS_DB", "3")
	t.Setenv("FORMFLOW_WATCH", "true")

	cfg := resolveServeConfig(serveCmd)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "memory", cfg.Store, "flag default when env is unset")
}

func TestLoadDotEnv(t *testing.T) {
	path := testutils.WriteFile(t, t.TempDir(), ".env", "FORMFLOW_STORE=sqlite\n")
	t.Setenv("FORMFLOW_STORE", "")
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "sqlite", envString("FORMFLOW_STORE", "memory"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logging.NewNop()

	b, err := openStore(ctx, serveConfig{Store: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, b.store)
	assert.Nil(t, b.locker)

	b, err = openStore(ctx, serveConfig{Store: "file", StoreDSN: t.TempDir()}, log)
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, b.store)

	b, err = openStore(ctx, serveConfig{Store: "sqlite", StoreDSN: filepath.Join(t.TempDir(), "db", "sessions.db")}, log)
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, b.store)
	b.close()

	_, err = openStore(ctx, serveConfig{Store: "etcd"}, log)
	assert.ErrorContains(t, err, "unknown store")
}
