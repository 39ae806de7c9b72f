package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/tresorerie/backend/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{
		Host: "localhost", Port: "5432", User: "postgres",
		Password: "secret", Name: "tresorerie", SSLMode: "disable",
	})
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=tresorerie sslmode=disable", dsn)
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("creates schema", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports failure", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
			WillReturnError(assert.AnError)

		err := Migrate(context.Background(), db)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to migrate database")
	})
}
