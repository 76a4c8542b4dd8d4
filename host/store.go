package host

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrImageNotFound indicates the store has no image for the module.
var ErrImageNotFound = errors.New("image not found in store")

// Store persists module images in SQLite, keyed by module name with a
// content hash alongside for change detection.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenStore opens (creating if needed) an image store at the given path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// Busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS images (
		module TEXT PRIMARY KEY,
		hash   BLOB NOT NULL,
		image  BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating images table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores an image under the module name, replacing any previous one.
func (s *Store) Save(module string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := sha256.Sum256(data)
	_, err := s.db.Exec(
		`INSERT INTO images (module, hash, image) VALUES (?, ?, ?)
		 ON CONFLICT(module) DO UPDATE SET hash = excluded.hash, image = excluded.image`,
		module, hash[:], data,
	)
	if err != nil {
		return fmt.Errorf("saving image %s: %w", module, err)
	}
	return nil
}

// Load returns the stored image bytes for a module.
func (s *Store) Load(module string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow(`SELECT image FROM images WHERE module = ?`, module).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", module, ErrImageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", module, err)
	}
	return data, nil
}

// Hash returns the stored content hash for a module's image.
func (s *Store) Hash(module string) ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	err := s.db.QueryRow(`SELECT hash FROM images WHERE module = ?`, module).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return [32]byte{}, fmt.Errorf("%s: %w", module, ErrImageNotFound)
	}
	if err != nil {
		return [32]byte{}, fmt.Errorf("loading hash %s: %w", module, err)
	}
	var hash [32]byte
	copy(hash[:], raw)
	return hash, nil
}

// Delete removes a module's image from the store.
func (s *Store) Delete(module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM images WHERE module = ?`, module); err != nil {
		return fmt.Errorf("deleting image %s: %w", module, err)
	}
	return nil
}

// Modules lists the module names present in the store.
func (s *Store) Modules() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT module FROM images ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var modules []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing images: %w", err)
		}
		modules = append(modules, name)
	}
	return modules, rows.Err()
}

// InstallAll loads every stored image into the runtime. The first load
// failure aborts and is returned.
func (s *Store) InstallAll(rt *Runtime) error {
	modules, err := s.Modules()
	if err != nil {
		return err
	}
	for _, name := range modules {
		data, err := s.Load(name)
		if err != nil {
			return err
		}
		if err := rt.Load(name, data); err != nil {
			return err
		}
	}
	return nil
}
