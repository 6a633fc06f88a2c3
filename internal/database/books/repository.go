// Package books provides database operations for book lifecycle. Shelf
// membership is managed through the membership ledger: assigned per shelf on
// create, replaced wholesale on update, cleared on delete. Series position is
// written as supplied; sibling positions are never compacted.
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ivkhr/bookshelf/internal/entities"
	"github.com/ivkhr/bookshelf/internal/membership"
)

var (
	ErrNotFound       = errors.New("book not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrShelfNotFound  = errors.New("shelf not found")
	ErrSeriesNotFound = errors.New("series not found")
)

// BookParams is the full writable field set of a book plus the shelf ids it
// should belong to. Duplicate shelf ids collapse to set membership.
type BookParams struct {
	Title          string
	Author         string
	Description    string
	CoverURL       string
	PageCount      int
	SeriesID       *uint
	SeriesPosition *int
	ShelfIDs       []uint
}

// Repository handles book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create adds a book for the user and assigns it to each supplied shelf,
// all in one transaction.
func (r *Repository) Create(userID uint, p BookParams) (*entities.Book, error) {
	book := &entities.Book{
		UserID:         userID,
		Title:          p.Title,
		Author:         p.Author,
		Description:    p.Description,
		CoverURL:       p.CoverURL,
		PageCount:      p.PageCount,
		SeriesID:       p.SeriesID,
		SeriesPosition: p.SeriesPosition,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := checkSeries(tx, p.SeriesID); err != nil {
			return err
		}

		shelvesToJoin, err := loadShelves(tx, p.ShelfIDs)
		if err != nil {
			return err
		}

		if err := tx.Create(book).Error; err != nil {
			return err
		}

		for i := range shelvesToJoin {
			if err := membership.Assign(tx, book, &shelvesToJoin[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Update overwrites the book's full field set and replaces its shelf
// membership wholesale with the supplied shelf ids.
func (r *Repository) Update(id uint, p BookParams) (*entities.Book, error) {
	var book entities.Book

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := checkSeries(tx, p.SeriesID); err != nil {
			return err
		}

		newShelves, err := loadShelves(tx, p.ShelfIDs)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"title":           p.Title,
			"author":          p.Author,
			"description":     p.Description,
			"cover_url":       p.CoverURL,
			"page_count":      p.PageCount,
			"series_id":       p.SeriesID,
			"series_position": p.SeriesPosition,
		}
		if err := tx.Model(&book).Updates(updates).Error; err != nil {
			return err
		}

		return membership.Replace(tx, &book, newShelves)
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes the book and all its shelf memberships. Series positions of
// sibling books are left as they are.
func (r *Repository) Delete(id uint) (*entities.Book, error) {
	var book entities.Book

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := membership.ClearBook(tx, &book); err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByID retrieves a book with its shelves preloaded.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Shelves").First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List returns all books with their owners and shelves.
func (r *Repository) List() ([]entities.Book, error) {
	var found []entities.Book
	err := r.db.Preload("User").Preload("Shelves").Order("user_id ASC, id ASC").Find(&found).Error
	return found, err
}

// loadShelves resolves shelf ids to rows, deduplicating the input. Every id
// must exist.
func loadShelves(tx *gorm.DB, ids []uint) ([]entities.Shelf, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	var found []entities.Shelf
	if err := tx.Where("id IN ?", unique).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, ErrShelfNotFound
	}
	return found, nil
}

func checkSeries(tx *gorm.DB, seriesID *uint) error {
	if seriesID == nil {
		return nil
	}
	var s entities.Series
	if err := tx.First(&s, *seriesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSeriesNotFound
		}
		return err
	}
	return nil
}
