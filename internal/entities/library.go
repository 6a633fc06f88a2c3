package entities

import (
	"time"
)

// ShelvesDisplay controls how a user's shelves are presented by clients.
type ShelvesDisplay string

const (
	ShelvesDisplayShelf ShelvesDisplay = "shelf"
	ShelvesDisplayList  ShelvesDisplay = "list"
)

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordHash string `gorm:"size:100" json:"-"`

	// Session token is bound to the client address it was issued to and is
	// rotated on every successful lookup. Both fields are empty when the
	// user has no active session.
	Token        string `gorm:"index;size:64" json:"-"`
	TokenAddress string `gorm:"size:45" json:"-"`

	ShelvesDisplay ShelvesDisplay `gorm:"size:20;default:'shelf'" json:"shelves_display"`

	Shelves []Shelf  `gorm:"foreignKey:UserID" json:"shelves,omitempty"`
	Series  []Series `gorm:"foreignKey:UserID" json:"series,omitempty"`
	Books   []Book   `gorm:"foreignKey:UserID" json:"books,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Shelf positions are dense zero-based ranks within the owning user's shelf
// set: for N shelves they are exactly {0..N-1}. The invariant is maintained
// by the ordering engine inside each mutating transaction; there is no
// unique index on (user_id, position) because bulk shifts would transiently
// violate it.
type Shelf struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"index" json:"user_id"`
	Name     string `gorm:"index;size:200" json:"name"`
	Position int    `json:"position"`

	User  User   `gorm:"foreignKey:UserID" json:"-"`
	Books []Book `gorm:"many2many:shelf_books;" json:"books,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Series struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"index" json:"user_id"`
	Name   string `gorm:"index;size:200" json:"name"`

	User  User   `gorm:"foreignKey:UserID" json:"-"`
	Books []Book `gorm:"foreignKey:SeriesID" json:"books,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"index" json:"user_id"`
	Title       string `gorm:"index;size:512" json:"title"`
	Author      string `gorm:"index;size:256" json:"author"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	CoverURL    string `gorm:"size:2048" json:"cover_url,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`

	// SeriesPosition is caller-supplied and written as-is; unlike shelf
	// positions it is not routed through the ordering engine.
	SeriesID       *uint `gorm:"index" json:"series_id"`
	SeriesPosition *int  `json:"series_position"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Series  *Series `gorm:"foreignKey:SeriesID" json:"-"`
	Shelves []Shelf `gorm:"many2many:shelf_books;" json:"shelves,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Shelf) TableName() string {
	return "shelves"
}

func (Series) TableName() string {
	return "series"
}

func (Book) TableName() string {
	return "books"
}
