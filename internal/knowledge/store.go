package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giho-tech/helpdesk/internal/db"
)

// DefaultLimit caps Search results when the caller passes no limit.
const DefaultLimit = 3

// Store manages persistence of knowledge-base solutions.
type Store struct {
	db *db.DB
}

// NewStore creates a new solution store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const solutionColumns = `id, title, keywords, description, video_url, created_at, updated_at`

// Create adds a new solution.
func (s *Store) Create(ctx context.Context, sol Solution) (*Solution, error) {
	if sol.ID == "" {
		sol.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sol.CreatedAt = now
	sol.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solutions (`+solutionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sol.ID, sol.Title, sol.Keywords, sol.Description, nullString(sol.VideoURL), sol.CreatedAt, sol.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting solution: %w", err)
	}
	return &sol, nil
}

// Get retrieves a solution by id.
func (s *Store) Get(ctx context.Context, id string) (*Solution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+solutionColumns+` FROM solutions WHERE id = ?`, id)
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting solution: %w", err)
	}
	return sol, nil
}

// List returns all solutions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Solution, error) {
	return s.query(ctx, `SELECT `+solutionColumns+` FROM solutions ORDER BY updated_at DESC`)
}

// Search returns up to limit solutions whose title, keywords or
// description contain query. Matching uses SQLite LIKE: ASCII letters
// fold case, everything else (Vietnamese diacritics included) must match
// exactly.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Solution, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return s.query(ctx,
		`SELECT `+solutionColumns+` FROM solutions
		 WHERE title LIKE ? ESCAPE '\' OR keywords LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		 ORDER BY created_at ASC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Update overwrites the editable fields of a solution.
func (s *Store) Update(ctx context.Context, sol Solution) (*Solution, error) {
	sol.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE solutions SET title = ?, keywords = ?, description = ?, video_url = ?, updated_at = ? WHERE id = ?`,
		sol.Title, sol.Keywords, sol.Description, nullString(sol.VideoURL), sol.UpdatedAt, sol.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating solution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, sol.ID)
}

// Delete removes a solution.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM solutions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting solution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll clears the table before a fresh seed.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM solutions`); err != nil {
		return fmt.Errorf("clearing solutions: %w", err)
	}
	return nil
}

// Count returns the number of stored solutions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solutions`).Scan(&n)
	return n, err
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Solution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying solutions: %w", err)
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning solution: %w", err)
		}
		out = append(out, *sol)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSolution(row scanner) (*Solution, error) {
	var sol Solution
	var video sql.NullString
	if err := row.Scan(&sol.ID, &sol.Title, &sol.Keywords, &sol.Description, &video, &sol.CreatedAt, &sol.UpdatedAt); err != nil {
		return nil, err
	}
	sol.VideoURL = video.String
	return &sol, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
