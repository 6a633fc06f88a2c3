package auth

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ivkhr/bookshelf/internal/config"
	"github.com/ivkhr/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	dbPath := "./test_auth_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Shelf{},
	)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func newTestService(db *gorm.DB) *Service {
	return NewService(db, config.Auth{
		BcryptCost:  bcrypt.MinCost,
		TokenLength: 32,
	})
}

func TestRegister(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	user, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, user.Token, 32)
	assert.Equal(t, "10.0.0.1", user.TokenAddress)
	assert.NotEqual(t, "sekret", user.PasswordHash)

	// Registration seeds the default shelf at the front.
	var shelves []entities.Shelf
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&shelves).Error)
	require.Len(t, shelves, 1)
	assert.Equal(t, DefaultShelfName, shelves[0].Name)
	assert.Equal(t, 0, shelves[0].Position)
}

func TestRegister_Validation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	_, err := svc.Register("", "sekret", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUsernameRequired)

	_, err = svc.Register("alice", "", "10.0.0.1")
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	_, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Register("alice", "other", "10.0.0.2")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	registered, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)

	user, token, err := svc.Login("alice", "sekret", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, registered.Token, token)
	assert.Equal(t, "10.0.0.2", user.TokenAddress)
}

func TestLogin_BadCredentials(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	_, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "sekret", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveSession_RotatesToken(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	registered, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)
	original := registered.Token

	user, rotated, err := svc.ResolveSession(original, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEqual(t, original, rotated)

	// The old token is spent.
	_, _, err = svc.ResolveSession(original, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidSession)

	// The rotated one works, once.
	_, next, err := svc.ResolveSession(rotated, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, rotated, next)
}

func TestResolveSession_AddressMismatchClearsToken(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	registered, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)

	_, _, err = svc.ResolveSession(registered.Token, "10.9.9.9")
	assert.ErrorIs(t, err, ErrInvalidSession)

	// The mismatch burned the token: the rightful address cannot use it
	// either.
	_, _, err = svc.ResolveSession(registered.Token, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidSession)

	var user entities.User
	require.NoError(t, db.First(&user, registered.ID).Error)
	assert.Empty(t, user.Token)
	assert.Empty(t, user.TokenAddress)
}

func TestResolveSession_EmptyOrUnknownToken(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	_, _, err := svc.ResolveSession("", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, _, err = svc.ResolveSession("nosuchtoken", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLogout(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestService(db)

	registered, err := svc.Register("alice", "sekret", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(registered.Token))

	_, _, err = svc.ResolveSession(registered.Token, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidSession)

	assert.ErrorIs(t, svc.Logout(registered.Token), ErrInvalidSession)
	assert.ErrorIs(t, svc.Logout(""), ErrInvalidSession)
}
