package ordering

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ivkhr/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	dbPath := "./test_ordering_" + t.Name() + ".db"

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

func createShelves(t *testing.T, db *gorm.DB, userID uint, count int) []entities.Shelf {
	t.Helper()
	shelves := make([]entities.Shelf, 0, count)
	for i := 0; i < count; i++ {
		shelf := entities.Shelf{
			UserID:   userID,
			Name:     "shelf-" + string(rune('a'+i)),
			Position: i,
		}
		require.NoError(t, db.Create(&shelf).Error)
		shelves = append(shelves, shelf)
	}
	return shelves
}

func positionByID(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var shelf entities.Shelf
	require.NoError(t, db.First(&shelf, id).Error)
	return shelf.Position
}

func TestNextPosition(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	scope := ShelvesOf(1)

	next, err := NextPosition(db, scope)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	createShelves(t, db, 1, 3)

	next, err = NextPosition(db, scope)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestMove_TowardsFront(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	shelves := createShelves(t, db, 1, 5)
	scope := ShelvesOf(1)

	// Move item at 3 to 1: former occupants of 1,2 shift to 2,3.
	err := Move(db, scope, shelves[3].ID, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, positionByID(t, db, shelves[3].ID))
	assert.Equal(t, 2, positionByID(t, db, shelves[1].ID))
	assert.Equal(t, 3, positionByID(t, db, shelves[2].ID))
	assert.Equal(t, 0, positionByID(t, db, shelves[0].ID))
	assert.Equal(t, 4, positionByID(t, db, shelves[4].ID))

	positions, err := Positions(db, scope)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, positions)
}

func TestMove_TowardsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	shelves := createShelves(t, db, 1, 5)
	scope := ShelvesOf(1)

	// Move item at 1 to 3: former occupants of 2,3 shift to 1,2.
	err := Move(db, scope, shelves[1].ID, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, positionByID(t, db, shelves[1].ID))
	assert.Equal(t, 1, positionByID(t, db, shelves[2].ID))
	assert.Equal(t, 2, positionByID(t, db, shelves[3].ID))
	assert.Equal(t, 0, positionByID(t, db, shelves[0].ID))
	assert.Equal(t, 4, positionByID(t, db, shelves[4].ID))
}

func TestMove_SamePositionIsNoOp(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	shelves := createShelves(t, db, 1, 3)
	scope := ShelvesOf(1)

	err := Move(db, scope, shelves[1].ID, 1, 1)
	require.NoError(t, err)

	positions, err := Positions(db, scope)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, positions)
}

func TestMove_OutOfRange(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	shelves := createShelves(t, db, 1, 3)
	scope := ShelvesOf(1)

	err := Move(db, scope, shelves[0].ID, 0, 3)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)

	err = Move(db, scope, shelves[2].ID, 2, -1)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestMove_DoesNotTouchOtherScopes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	mine := createShelves(t, db, 1, 3)
	theirs := createShelves(t, db, 2, 3)

	err := Move(db, ShelvesOf(1), mine[0].ID, 0, 2)
	require.NoError(t, err)

	for i, shelf := range theirs {
		assert.Equal(t, i, positionByID(t, db, shelf.ID))
	}
}

func TestCompact_ClosesGap(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	shelves := createShelves(t, db, 1, 5)
	scope := ShelvesOf(1)

	// Delete shelf at position 2: shelves at 3,4 slide to 2,3.
	require.NoError(t, db.Delete(&shelves[2]).Error)
	require.NoError(t, Compact(db, scope, 2))

	positions, err := Positions(db, scope)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, positions)

	assert.Equal(t, 2, positionByID(t, db, shelves[3].ID))
	assert.Equal(t, 3, positionByID(t, db, shelves[4].ID))
}

func TestDensityInvariant_SurvivesMixedOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	scope := ShelvesOf(1)

	var shelves []entities.Shelf
	for i := 0; i < 6; i++ {
		next, err := NextPosition(db, scope)
		require.NoError(t, err)

		shelf := entities.Shelf{UserID: 1, Name: "s", Position: next}
		require.NoError(t, db.Create(&shelf).Error)
		shelves = append(shelves, shelf)
	}

	require.NoError(t, Move(db, scope, shelves[5].ID, 5, 0))
	require.NoError(t, Move(db, scope, shelves[2].ID, positionByID(t, db, shelves[2].ID), 4))

	victim := shelves[0]
	require.NoError(t, Compact(db, scope, positionByID(t, db, victim.ID)))
	require.NoError(t, db.Delete(&victim).Error)

	positions, err := Positions(db, scope)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, positions)
}
