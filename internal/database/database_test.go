package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("shop", "pw", "db", "3306", "storefront")
	assert.Contains(t, dsn, "shop:pw@tcp(db:3306)/storefront?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin_SkipsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE username = ?")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE username = ?")).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, 1)")).
		WithArgs("root", "root@store.com", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := SeedAdmin(context.Background(), db, "admin", "admin@store.com", "hash")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = SeedAdmin(context.Background(), db, "root", "root@store.com", "hash")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedSampleProducts_OnlyWhenEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	for range sampleProducts {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))

	n, err := SeedSampleProducts(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, len(sampleProducts), n)

	n, err = SeedSampleProducts(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
