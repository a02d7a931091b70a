// Package dedup implements the disk-backed URL/signature dedup store
// (spec.md §4.12): a single sqlite file per crawl, with an in-memory
// fast path for the first K seeded URLs.
package dedup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kennygrant/sanitize"
	_ "modernc.org/sqlite"

	"github.com/theaidguild/spider/internal/errs"
)

// seedMemoryLimit is K from spec.md §4.12: the first K seeded URLs are
// kept in memory and returned directly by Seed; the rest are bulk
// inserted in chunks inside one transaction.
const seedMemoryLimit = 100

// seedChunkSize is the per-transaction insert batch size for the
// remainder of a Seed call.
const seedChunkSize = 500

var unsafePathChars = strings.NewReplacer(
	".", "_", "/", "_", ":", "_", `\`, "_", "?", "_",
	"*", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeCrawlID produces the filename component of the path template
// `${base}/spider_${sanitized_id}.db`. sanitize.BaseName strips any
// directory component an adversarial crawl-id might smuggle in; the
// replacer then applies spec.md's exact character substitution list.
func sanitizeCrawlID(id string) string {
	return unsafePathChars.Replace(sanitize.BaseName(id))
}

// Store is the disk dedup store. Case-insensitive URL equality is
// enforced by lower-casing keys before every lookup/insert.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	persist bool
	crawlID string
}

// Options configures New.
type Options struct {
	CrawlID string // if empty, a random one is not generated; caller must supply one to persist
	BaseDir string // default: os.TempDir()
	Persist bool   // if false, the backing file is removed on Close
}

// New opens (creating if needed) the sqlite-backed store for a crawl.
func New(opts Options) (*Store, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	crawlID := opts.CrawlID
	if crawlID == "" {
		crawlID = "default"
	}
	path := filepath.Join(baseDir, fmt.Sprintf("spider_%s.db", sanitizeCrawlID(crawlID)))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &errs.IOError{Op: "open", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes per-connection writes anyway

	const schema = `
CREATE TABLE IF NOT EXISTS urls (url TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS signatures (sig INTEGER PRIMARY KEY);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &errs.IOError{Op: "migrate", Path: path, Err: err}
	}

	return &Store{db: db, path: path, persist: opts.Persist, crawlID: crawlID}, nil
}

func normalizeKey(u string) string { return strings.ToLower(strings.TrimSpace(u)) }

// InsertURL records u as seen. Idempotent.
func (s *Store) InsertURL(u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO urls(url) VALUES (?)`, normalizeKey(u))
	if err != nil {
		return &errs.IOError{Op: "insert_url", Path: s.path, Err: err}
	}
	return nil
}

// URLExists reports whether u was previously inserted. A database error
// is logged by the caller and treated as "not seen" per spec.md §7's
// conservative-absence policy — it returns (false, err) so callers can
// choose to log while still proceeding as if unseen.
func (s *Store) URLExists(u string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dummy string
	err := s.db.QueryRow(`SELECT url FROM urls WHERE url = ?`, normalizeKey(u)).Scan(&dummy)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, &errs.IOError{Op: "url_exists", Path: s.path, Err: err}
	default:
		return true, nil
	}
}

// InsertSignature records a content signature (e.g. a simhash/xxhash of
// cleaned body bytes) as seen.
func (s *Store) InsertSignature(sig uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO signatures(sig) VALUES (?)`, int64(sig))
	if err != nil {
		return &errs.IOError{Op: "insert_signature", Path: s.path, Err: err}
	}
	return nil
}

// SignatureExists reports whether sig was previously inserted.
func (s *Store) SignatureExists(sig uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dummy int64
	err := s.db.QueryRow(`SELECT sig FROM signatures WHERE sig = ?`, int64(sig)).Scan(&dummy)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, &errs.IOError{Op: "signature_exists", Path: s.path, Err: err}
	default:
		return true, nil
	}
}

// Seed inserts urls, keeping the first seedMemoryLimit in memory (and
// returning them directly, already deduplicated against the store) and
// bulk-inserting the remainder in chunks of seedChunkSize inside a
// single transaction each.
func (s *Store) Seed(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	head := urls
	tail := []string(nil)
	if len(urls) > seedMemoryLimit {
		head = urls[:seedMemoryLimit]
		tail = urls[seedMemoryLimit:]
	}

	kept := make([]string, 0, len(head))
	seen := make(map[string]struct{}, len(head))
	for _, u := range head {
		key := normalizeKey(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		exists, err := s.URLExists(u)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		if err := s.InsertURL(u); err != nil {
			return nil, err
		}
		kept = append(kept, u)
	}

	for i := 0; i < len(tail); i += seedChunkSize {
		end := i + seedChunkSize
		if end > len(tail) {
			end = len(tail)
		}
		if err := s.bulkInsertChunk(tail[i:end]); err != nil {
			return nil, err
		}
	}

	return kept, nil
}

func (s *Store) bulkInsertChunk(chunk []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return &errs.IOError{Op: "seed_begin", Path: s.path, Err: err}
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO urls(url) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		return &errs.IOError{Op: "seed_prepare", Path: s.path, Err: err}
	}
	defer stmt.Close()
	for _, u := range chunk {
		if _, err := stmt.Exec(normalizeKey(u)); err != nil {
			tx.Rollback()
			return &errs.IOError{Op: "seed_insert", Path: s.path, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &errs.IOError{Op: "seed_commit", Path: s.path, Err: err}
	}
	return nil
}

// Clear drops every row from both tables without removing the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM urls`); err != nil {
		return &errs.IOError{Op: "clear_urls", Path: s.path, Err: err}
	}
	if _, err := s.db.Exec(`DELETE FROM signatures`); err != nil {
		return &errs.IOError{Op: "clear_signatures", Path: s.path, Err: err}
	}
	return nil
}

// Close closes the database handle and, unless Persist was set, removes
// the backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	if !s.persist {
		if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
			if err == nil {
				err = rmErr
			}
		}
	}
	if err != nil {
		return &errs.IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

// Path returns the backing file path, mainly for tests and diagnostics.
func (s *Store) Path() string { return s.path }
