// Package shelves provides database operations for shelf lifecycle. Shelf
// names are unique per user and shelf positions are kept dense by the
// ordering engine; every mutation runs in one transaction so partial shifts
// are never observable.
package shelves

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/entities"
	"github.com/ivkhr/bookshelf/internal/membership"
	"github.com/ivkhr/bookshelf/internal/ordering"
)

var (
	ErrNotFound      = errors.New("shelf not found")
	ErrDuplicateName = errors.New("a shelf with this name already exists for this user")
	ErrUserNotFound  = errors.New("user not found")
)

// Repository handles shelf database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new shelves repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create adds a shelf for the user at the caller-supplied position. The
// position is trusted as given; only the register-time default shelf is
// placed automatically.
func (r *Repository) Create(userID uint, name string, position int) (*entities.Shelf, error) {
	shelf := &entities.Shelf{
		UserID:   userID,
		Name:     name,
		Position: position,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := checkNameFree(tx, userID, name, 0); err != nil {
			return err
		}

		return tx.Create(shelf).Error
	})
	if err != nil {
		return nil, err
	}
	return shelf, nil
}

// Update renames and/or moves a shelf. A nil field leaves that attribute
// untouched; a nil position means no reorder. Renames re-check uniqueness
// excluding the shelf itself; moves go through the ordering engine so every
// neighbour shifts inside the same transaction.
func (r *Repository) Update(id uint, name *string, position *int) (*entities.Shelf, error) {
	var shelf entities.Shelf

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&shelf, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if name != nil && *name != shelf.Name {
			if err := checkNameFree(tx, shelf.UserID, *name, shelf.ID); err != nil {
				return err
			}
			if err := tx.Model(&shelf).Update("name", *name).Error; err != nil {
				return err
			}
		}

		if position != nil && *position != shelf.Position {
			scope := ordering.ShelvesOf(shelf.UserID)
			if err := ordering.Move(tx, scope, shelf.ID, shelf.Position, *position); err != nil {
				return err
			}
			shelf.Position = *position
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &shelf, nil
}

// Delete removes a shelf, compacts the owner's positions and drops all of
// the shelf's book memberships. The books themselves are untouched.
func (r *Repository) Delete(id uint) (*entities.Shelf, error) {
	var shelf entities.Shelf

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&shelf, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := ordering.Compact(tx, ordering.ShelvesOf(shelf.UserID), shelf.Position); err != nil {
			return err
		}
		if err := membership.ClearShelf(tx, &shelf); err != nil {
			return err
		}
		return tx.Delete(&shelf).Error
	})
	if err != nil {
		return nil, err
	}
	return &shelf, nil
}

// GetByID retrieves a shelf with its books preloaded.
func (r *Repository) GetByID(id uint) (*entities.Shelf, error) {
	var shelf entities.Shelf
	err := r.db.Preload("Books").First(&shelf, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shelf, nil
}

// List returns all shelves with their owners, ordered per user by position.
func (r *Repository) List() ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	err := r.db.Preload("User").Order("user_id ASC, position ASC").Find(&shelves).Error
	return shelves, err
}

// ListForUser returns the user's shelves ordered by position.
func (r *Repository) ListForUser(userID uint) ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	err := r.db.Where("user_id = ?", userID).Order("position ASC").Find(&shelves).Error
	return shelves, err
}

func checkNameFree(tx *gorm.DB, userID uint, name string, excludeID uint) error {
	var count int64
	query := tx.Model(&entities.Shelf{}).Where("user_id = ? AND name = ?", userID, name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}
	return nil
}
