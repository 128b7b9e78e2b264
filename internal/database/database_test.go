package database

import (
	"testing"

	"contactbook/internal/config"
	"contactbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	db, err := Open(config.DriverSQLite, "file:database_test?mode=memory&cache=shared")
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.Contact{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(config.DriverMemory, "database_memory_test")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Contact{Name: "Ada", Phone: "555", Email: "ada@example.com"}).Error)
	var count int64
	require.NoError(t, db.Model(&models.Contact{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}
