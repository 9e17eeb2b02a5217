package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrMissingNameOrPhone = errors.New("missing name or phone")
	ErrNotFound           = errors.New("contact not found")
)

// Contact is a client who left their details during a call.
type Contact struct {
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Times     int       `json:"times"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store persists contacts in SQLite.
type Store struct {
	*sql.DB
	logger *zerolog.Logger
	now    func() time.Time
}

// Open creates the database file and schema if needed.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create contacts directory: %w", err)
	}
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to contacts database: %w", err)
	}

	l := logger.With().Str("component", "contacts").Logger()
	s := &Store{DB: db, logger: &l, now: time.Now}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create contacts tables: %w", err)
	}
	l.Info().Str("path", path).Msg("Contacts database initialized")
	return s, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			ref TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			times INTEGER NOT NULL DEFAULT 1,
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone)`,
	}
	for _, q := range queries {
		if _, err := s.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Ref derives the stable reference of a name and phone pair.
func Ref(name, phone string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+"|"+phone)).String()
}

// Remember upserts a contact and returns its reference. Repeating the same
// pair bumps the counter and last-seen time and returns the same ref.
func (s *Store) Remember(ctx context.Context, name, phone string) (string, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return "", ErrMissingNameOrPhone
	}
	ref := Ref(name, phone)
	now := s.now().UTC()
	_, err := s.ExecContext(ctx, `
		INSERT INTO contacts (ref, name, phone, times, first_seen, last_seen)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			times = contacts.times + 1,
			last_seen = excluded.last_seen`,
		ref, name, phone, now, now)
	if err != nil {
		return "", fmt.Errorf("remember contact: %w", err)
	}
	s.logger.Debug().Str("ref", ref).Msg("contact remembered")
	return ref, nil
}

// Get returns a contact by reference.
func (s *Store) Get(ctx context.Context, ref string) (*Contact, error) {
	row := s.QueryRowContext(ctx, `
		SELECT ref, name, phone, times, first_seen, last_seen
		FROM contacts WHERE ref = ?`, ref)
	var c Contact
	if err := row.Scan(&c.Ref, &c.Name, &c.Phone, &c.Times, &c.FirstSeen, &c.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ByPhone returns every contact left with the given phone, newest first.
func (s *Store) ByPhone(ctx context.Context, phone string) ([]Contact, error) {
	return s.query(ctx, `
		SELECT ref, name, phone, times, first_seen, last_seen
		FROM contacts WHERE phone = ? ORDER BY last_seen DESC, ref`, strings.TrimSpace(phone))
}

// List returns all contacts, newest first.
func (s *Store) List(ctx context.Context) ([]Contact, error) {
	return s.query(ctx, `
		SELECT ref, name, phone, times, first_seen, last_seen
		FROM contacts ORDER BY last_seen DESC, ref`)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Contact, error) {
	rows, err := s.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Ref, &c.Name, &c.Phone, &c.Times, &c.FirstSeen, &c.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
