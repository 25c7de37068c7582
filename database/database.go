package database

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pool holds the database connection pool. It stays nil when no
// DATABASE_URL is configured; the dataset builder treats that as
// "no historical database available" rather than an error.
var pool *pgxpool.Pool

// Connect sets up the database connection pool.
func Connect(databaseURL string) {
	var err error
	pool, err = pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = pool.Ping(context.Background()); err != nil {
		log.Fatalf("Database ping failed: %v\n", err)
	}

	log.Println("Successfully connected to the database")
}

// Pool returns the connection pool, or nil when the database is not configured.
func Pool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool.
func Close() {
	if pool != nil {
		pool.Close()
		log.Println("Database connection pool closed")
	}
}
