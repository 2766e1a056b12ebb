package migrations

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMigrationFiles(t *testing.T) {
	m := &Migrator{files: schemaFS}
	files, err := m.findMigrationFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "sql/001_ensemble_vectors.sql", files[0].Path)
	assert.Equal(t, "002", files[1].Version)
}

func TestUp_AppliesPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_ensemble_vectors_ensemble_vector").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := NewMigrator(db).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"002"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))

	status, err := NewMigrator(db).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MigrationStatus{{Version: "001", Applied: true}, {Version: "002", Applied: false}}, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
