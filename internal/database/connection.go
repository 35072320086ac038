package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql connection so that repositories receive an explicit
// handle instead of reaching for package-level state.
type DB struct {
	*sqlx.DB
}

// Connect establishes a connection to the database. When DATABASE_URL is
// set a PostgreSQL connection is used, otherwise a local SQLite file
// under the data directory.
func Connect() (*DB, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return Open("postgres", dsn)
	}

	// Create data directory if it doesn't exist
	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	return Open("sqlite3", filepath.Join(dataDir, "edubot.db"))
}

// Open connects to the given driver/DSN and initializes the schema.
func Open(driver, dsn string) (*DB, error) {
	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	db := &DB{conn}
	if err := db.initializeSchema(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func (db *DB) initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	// Verified chat -> email bindings. The two UNIQUE constraints carry
	// the bidirectional one-to-one invariant, including under races.
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id %s,
			chat_id BIGINT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, idColumn))
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Append-only conversation history, ordered by id within a chat.
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS messages (
			id %s,
			chat_id BIGINT NOT NULL,
			message_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL DEFAULT 0,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, idColumn))
	if err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, id)`)
	if err != nil {
		return fmt.Errorf("failed to create messages index: %v", err)
	}

	return nil
}
