package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/db"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

// Store manages persistence of tickets.
type Store struct {
	db *db.DB
}

// NewStore creates a new ticket store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const ticketColumns = `id, customer_name, phone, description, attachment_url, attachment_kind, status,
	warranty_status, warranty_details, created_at, updated_at`

// Create inserts a ticket. Status defaults to OPEN.
func (s *Store) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var details sql.NullString
	if len(t.WarrantyDetails) > 0 {
		raw, err := json.Marshal(t.WarrantyDetails)
		if err != nil {
			return nil, fmt.Errorf("marshalling warranty details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (`+ticketColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CustomerName, nullString(t.Phone), t.Description, nullString(t.AttachmentURL),
		nullString(string(t.AttachmentKind)), t.Status, nullString(string(t.WarrantyStatus)), details,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting ticket: %w", err)
	}
	return &t, nil
}

// Get retrieves a ticket by id.
func (s *Store) Get(ctx context.Context, id string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return t, nil
}

// List returns tickets matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}
	return s.query(ctx, query, args...)
}

// ListOlderThan returns tickets created before cutoff.
func (s *Store) ListOlderThan(ctx context.Context, cutoff time.Time) ([]Ticket, error) {
	return s.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE created_at < ? ORDER BY created_at ASC`, cutoff.UTC())
}

// UpdateStatus changes the status of a ticket.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a ticket.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns ticket counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting tickets: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusOpen: 0, StatusResolved: 0, StatusEscalated: 0}
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (*Ticket, error) {
	var t Ticket
	var phone, url, kind, wStatus, details sql.NullString
	if err := row.Scan(&t.ID, &t.CustomerName, &phone, &t.Description, &url, &kind, &t.Status,
		&wStatus, &details, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Phone = phone.String
	t.AttachmentURL = url.String
	t.AttachmentKind = attachment.Kind(kind.String)
	t.WarrantyStatus = warranty.Status(wStatus.String)
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &t.WarrantyDetails); err != nil {
			return nil, fmt.Errorf("decoding warranty details: %w", err)
		}
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
