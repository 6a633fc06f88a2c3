package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultTokenLength is the length of generated session tokens
	DefaultTokenLength = 64
)
