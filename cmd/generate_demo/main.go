// Command generate_demo creates a demo database with a couple of sample
// libraries built from public domain books.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"

	"github.com/ivkhr/bookshelf/internal/auth"
	"github.com/ivkhr/bookshelf/internal/config"
	"github.com/ivkhr/bookshelf/internal/database"
	"github.com/ivkhr/bookshelf/internal/database/books"
	"github.com/ivkhr/bookshelf/internal/database/series"
	"github.com/ivkhr/bookshelf/internal/database/shelves"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	authService := auth.NewService(db.DB, config.Auth{BcryptCost: 10, TokenLength: config.DefaultTokenLength})
	shelfRepo := shelves.NewRepository(db.DB)
	seriesRepo := series.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)

	alice, err := authService.Register("alice", "demo-password-alice", "127.0.0.1")
	if err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}

	// Registration already created "All Books" at position 0
	reading, err := shelfRepo.Create(alice.ID, "Currently Reading", 1)
	if err != nil {
		log.Fatalf("Failed to create shelf: %v", err)
	}
	finished, err := shelfRepo.Create(alice.ID, "Finished", 2)
	if err != nil {
		log.Fatalf("Failed to create shelf: %v", err)
	}

	barsetshire, err := seriesRepo.Create(alice.ID, "Chronicles of Barsetshire")
	if err != nil {
		log.Fatalf("Failed to create series: %v", err)
	}

	allBooks, err := shelfRepo.ListForUser(alice.ID)
	if err != nil || len(allBooks) == 0 {
		log.Fatalf("Failed to load default shelf: %v", err)
	}
	defaultShelf := allBooks[0]

	pos := func(p int) *int { return &p }

	demoBooks := []books.BookParams{
		{
			Title:          "The Warden",
			Author:         "Anthony Trollope",
			Description:    "The first of the Barsetshire novels.",
			PageCount:      336,
			SeriesID:       &barsetshire.ID,
			SeriesPosition: pos(0),
			ShelfIDs:       []uint{defaultShelf.ID, finished.ID},
		},
		{
			Title:          "Barchester Towers",
			Author:         "Anthony Trollope",
			Description:    "The second Barsetshire novel.",
			PageCount:      544,
			SeriesID:       &barsetshire.ID,
			SeriesPosition: pos(1),
			ShelfIDs:       []uint{defaultShelf.ID, reading.ID},
		},
		{
			Title:     "Middlemarch",
			Author:    "George Eliot",
			PageCount: 880,
			ShelfIDs:  []uint{defaultShelf.ID},
		},
	}

	for _, p := range demoBooks {
		book, err := bookRepo.Create(alice.ID, p)
		if err != nil {
			log.Printf("Failed to save book %s: %v", p.Title, err)
			continue
		}
		log.Printf("Saved: %s by %s", book.Title, book.Author)
	}

	bob, err := authService.Register("bob", "demo-password-bob", "127.0.0.1")
	if err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}
	if _, err := shelfRepo.Create(bob.ID, "Reading", 1); err != nil {
		log.Fatalf("Failed to create shelf: %v", err)
	}

	log.Printf("Demo database generated successfully")
}
