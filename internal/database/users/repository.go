// Package users provides database operations for user records, including the
// ownership cascade: deleting a user removes every shelf, series and book the
// user owns, plus all shelf memberships of those books.
package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/entities"
)

var ErrNotFound = errors.New("user not found")

// Repository handles user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users, shallow (no owned entities preloaded).
func (r *Repository) List() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("id ASC").Find(&users).Error
	return users, err
}

// UpdateShelvesDisplay sets the shelves display preference.
func (r *Repository) UpdateShelvesDisplay(id uint, display entities.ShelvesDisplay) (*entities.User, error) {
	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(user).Update("shelves_display", display).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and everything the user owns in one transaction:
// shelf memberships of owned books, then books, series and shelves.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		err := tx.Exec(
			"DELETE FROM shelf_books WHERE book_id IN (SELECT id FROM books WHERE user_id = ?)",
			id,
		).Error
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&entities.Book{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Series{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Shelf{}).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}
