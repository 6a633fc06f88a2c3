// Package membership owns the many-to-many association between shelves and
// books. Membership is a set: assigning an existing pair or unassigning an
// absent one is a no-op, not an error. Operations take the caller's
// transaction so callers can combine them with entity mutations atomically.
package membership

import (
	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/entities"
)

// Assign adds the book to the shelf. Idempotent: the join table's composite
// key makes repeated appends no-ops.
func Assign(tx *gorm.DB, book *entities.Book, shelf *entities.Shelf) error {
	return tx.Model(book).Association("Shelves").Append(shelf)
}

// Unassign removes the book from the shelf. Removing an absent pair is a
// no-op.
func Unassign(tx *gorm.DB, book *entities.Book, shelf *entities.Shelf) error {
	return tx.Model(book).Association("Shelves").Delete(shelf)
}

// Replace swaps the book's entire shelf set for the supplied one: remove-all
// then add-all, two passes in the caller's transaction so no empty-membership
// window is observable after commit.
func Replace(tx *gorm.DB, book *entities.Book, shelves []entities.Shelf) error {
	if err := tx.Model(book).Association("Shelves").Clear(); err != nil {
		return err
	}
	if len(shelves) == 0 {
		return nil
	}
	return tx.Model(book).Association("Shelves").Append(&shelves)
}

// ClearBook removes the book from every shelf it belongs to.
func ClearBook(tx *gorm.DB, book *entities.Book) error {
	return tx.Model(book).Association("Shelves").Clear()
}

// ClearShelf removes every book from the shelf without touching the books
// themselves.
func ClearShelf(tx *gorm.DB, shelf *entities.Shelf) error {
	return tx.Model(shelf).Association("Books").Clear()
}
