package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/jera/internal/models"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	Path      string
	Title     string
	Date      string
	Draft     bool
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertPost inserts or replaces a post, its FTS entry, and its asset
// references within a transaction.
func (db *DB) UpsertPost(p PostRow, body string, refs []models.AssetRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(p.Tags)

	// Upsert posts table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO posts (path, title, date, draft, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			date       = excluded.date,
			draft      = excluded.draft,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Path, p.Title, p.Date, boolInt(p.Draft), p.Checksum, string(tagsJSON), body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Title, body, p.Tags); err != nil {
		return err
	}

	// Replace asset refs: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM asset_refs WHERE source = ?`, p.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO asset_refs (source, ref, image, absolute) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(p.Path, r.Path, boolInt(r.Image), boolInt(r.Absolute)); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePost removes a post, its FTS entry, and its asset references.
func (db *DB) DeletePost(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM asset_refs WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM posts WHERE path = ?`, path)

	return tx.Commit()
}

// GetPost returns the indexed row for a path, or nil when not indexed.
func (db *DB) GetPost(path string) (*PostRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, date, draft, checksum, tags, updated_at
		FROM posts WHERE path = ?
	`, path)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get post: %w", err)
	}
	return p, nil
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllPaths returns every indexed post path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListPosts returns a page of posts plus the total count. tag filters by
// tag membership; drafts ("only"/"exclude"/"" for all) filters the draft
// flag; sort is one of date, title, path, updated_at (default date desc).
func (db *DB) ListPosts(limit, offset int, tag, drafts, sort string) ([]PostRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	args := []interface{}{}
	if tag != "" {
		// Tags are stored as a JSON array of strings.
		where += ` AND tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}
	switch drafts {
	case "only":
		where += ` AND draft = 1`
	case "exclude":
		where += ` AND draft = 0`
	}

	order := "date DESC, path ASC"
	switch sort {
	case "title":
		order = "title ASC"
	case "path":
		order = "path ASC"
	case "updated_at":
		order = "updated_at DESC"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	query := `SELECT path, title, date, draft, checksum, tags, updated_at FROM posts WHERE ` +
		where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Refs returns the indexed asset references of a post.
func (db *DB) Refs(source string) ([]models.AssetRef, error) {
	rows, err := db.conn.Query(`SELECT ref, image, absolute FROM asset_refs WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("index: refs: %w", err)
	}
	defer rows.Close()

	var out []models.AssetRef
	for rows.Next() {
		var r models.AssetRef
		var img, abs int
		if err := rows.Scan(&r.Path, &img, &abs); err != nil {
			return nil, err
		}
		r.Image = img != 0
		r.Absolute = abs != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(r rowScanner) (*PostRow, error) {
	var p PostRow
	var draft int
	var tagsJSON string
	if err := r.Scan(&p.Path, &p.Title, &p.Date, &draft, &p.Checksum, &tagsJSON, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Draft = draft != 0
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
