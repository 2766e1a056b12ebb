package container

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/internal"
	"enstats/internal/config"
	"enstats/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(catalog string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			EnsemblesFile:    catalog,
			DefaultFrequency: frequency.Daily,
			LoadConcurrency:  2,
		},
		Database: config.DatabaseConfig{MaxOpenConns: 2},
	}
}

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(io.Discard, internal.LogLevelError)
}

func TestContainer_InitFromFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "iter-0.csv"),
		"DATE,REAL,FOPT\n2021-01-01,0,0\n2021-01-02,0,10\n2021-01-01,1,0\n2021-01-02,1,20\n")
	writeFile(t, filepath.Join(dir, "data", "iter-1.csv"),
		"DATE,REAL,FOPT\n2021-01-01,0,0\n2021-01-02,0,5\n")
	catalog := filepath.Join(dir, "ensembles.yaml")
	writeFile(t, catalog, `
ensembles:
  - name: iter-0
    path: data/iter-0.csv
  - name: iter-1
    path: data/iter-1.csv
deltas:
  - ensemble_a: iter-0
    ensemble_b: iter-1
expressions:
  - name: FOPT_X2
    expression: o * 2
    variables:
      o: FOPT
`)

	c, err := New(testConfig(catalog), quietLogger())
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.Equal(t, []string{"iter-0", "iter-1"}, c.Providers.Names())
	require.NotNil(t, c.Service)
	assert.Equal(t, []ensemble.Ref{
		ensemble.RealEnsemble{Ensemble: "iter-0"},
		ensemble.RealEnsemble{Ensemble: "iter-1"},
		ensemble.Delta{A: "iter-0", B: "iter-1"},
	}, c.Service.Ensembles())

	exprs := c.Service.Expressions()
	require.Len(t, exprs, 1)
	assert.True(t, exprs[0].IsValid)
}

func TestContainer_PostgresSourceNeedsDatabase(t *testing.T) {
	c, err := New(testConfig(""), quietLogger())
	require.NoError(t, err)

	catalog, err := config.ParseCatalog([]byte("ensembles:\n  - name: history\n    source: postgres\n"))
	require.NoError(t, err)

	err = c.InitWithCatalog(context.Background(), catalog)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestContainer_MissingFileIsLoadError(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "ensembles.yaml")
	writeFile(t, catalog, "ensembles:\n  - name: gone\n    path: missing.csv\n")

	c, err := New(testConfig(catalog), quietLogger())
	require.NoError(t, err)

	err = c.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadError, errors.GetCode(err))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
