// Package series provides database operations for series lifecycle. A series
// owns its books: deleting a series deletes the books it contains, unlike a
// shelf which only references books.
package series

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/entities"
)

var (
	ErrNotFound      = errors.New("series not found")
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateName = errors.New("a series with this name already exists for this user")
	ErrUserNotFound  = errors.New("user not found")
)

// BookPosition is one entry of the bulk position update applied on series
// update. Values are written to each book's series_position as supplied;
// there is no density or uniqueness validation on this path.
type BookPosition struct {
	BookID   uint `json:"book_id"`
	Position int  `json:"position"`
}

// Repository handles series database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new series repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create adds a series for the user, rejecting duplicate names per user.
func (r *Repository) Create(userID uint, name string) (*entities.Series, error) {
	s := &entities.Series{
		UserID: userID,
		Name:   name,
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

		return tx.Create(s).Error
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update renames the series and/or applies a batch of caller-supplied book
// positions. Each pair writes the book's series_position directly.
func (r *Repository) Update(id uint, name *string, bookPositions []BookPosition) (*entities.Series, error) {
	var s entities.Series

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if name != nil && *name != s.Name {
			if err := checkNameFree(tx, s.UserID, *name, s.ID); err != nil {
				return err
			}
			if err := tx.Model(&s).Update("name", *name).Error; err != nil {
				return err
			}
		}

		for _, bp := range bookPositions {
			var book entities.Book
			if err := tx.First(&book, bp.BookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookNotFound
				}
				return err
			}
			pos := bp.Position
			if err := tx.Model(&book).Update("series_position", &pos).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes the series and cascade-deletes the books it contains,
// including each book's shelf memberships, in one transaction.
func (r *Repository) Delete(id uint) (*entities.Series, error) {
	var s entities.Series

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		err := tx.Exec(
			"DELETE FROM shelf_books WHERE book_id IN (SELECT id FROM books WHERE series_id = ?)",
			id,
		).Error
		if err != nil {
			return err
		}

		if err := tx.Where("series_id = ?", id).Delete(&entities.Book{}).Error; err != nil {
			return err
		}

		return tx.Delete(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a series with its books preloaded.
func (r *Repository) GetByID(id uint) (*entities.Series, error) {
	var s entities.Series
	err := r.db.Preload("Books").First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all series with their owners.
func (r *Repository) List() ([]entities.Series, error) {
	var series []entities.Series
	err := r.db.Preload("User").Order("user_id ASC, id ASC").Find(&series).Error
	return series, err
}

func checkNameFree(tx *gorm.DB, userID uint, name string, excludeID uint) error {
	var count int64
	query := tx.Model(&entities.Series{}).Where("user_id = ? AND name = ?", userID, name)
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
