package auth

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/statuskit/core/internal/database"
	"github.com/statuskit/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestEnsureOwnerBootstrapsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	require.NoError(t, svc.EnsureOwner("admin", "hunter2"))
	require.NoError(t, svc.EnsureOwner("second", "other"))

	var count int64
	require.NoError(t, db.Model(&models.UserModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var user models.UserModel
	require.NoError(t, db.First(&user).Error)
	assert.Equal(t, "admin", user.Username)
	assert.NotEqual(t, "hunter2", user.Password, "password must be stored hashed")
}

func TestEnsureOwnerSkipsEmptyCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	require.NoError(t, svc.EnsureOwner("", ""))

	var count int64
	require.NoError(t, db.Model(&models.UserModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	require.NoError(t, svc.EnsureOwner("admin", "hunter2"))

	token, user, err := svc.Login(&LoginDTO{Username: "admin", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", user.Username)

	_, _, err = svc.Login(&LoginDTO{Username: "admin", Password: "wrong"})
	assert.Error(t, err)

	_, _, err = svc.Login(&LoginDTO{Username: "ghost", Password: "hunter2"})
	assert.Error(t, err)
}
