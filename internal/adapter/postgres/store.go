// Package postgres reads classified posts and persists help requests and
// responder credentials in the dashboard's Postgres database.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements the record source, help request store and credential
// store on one connection pool.
type Store struct {
	db querier
}

// NewStore creates a Store on db.
func NewStore(db querier) *Store {
	return &Store{db: db}
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

//go:embed schema.sql
var schema string

// ApplySchema creates the tables the service uses when they do not exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Every column is read as text so that the classifier's "None" markers and
// mixed column types reach the normalizer untouched.
const selectPosts = `
		SELECT id::text, tweet::text, "timestamp"::text, genuine_disaster::text,
			   disaster_type::text, location::text, severity_score::text,
			   latitude::text, longitude::text
		FROM disaster_posts
		WHERE 1=1`

// buildRecordQuery renders q as SQL with positional arguments.
func buildRecordQuery(q domain.RecordQuery) (string, []any) {
	query := selectPosts
	var args []any
	argIndex := 1

	if q.GenuineOnly {
		query += " AND lower(genuine_disaster::text) IN ('true', 't', 'yes', '1')"
	}
	if !q.Since.IsZero() {
		query += fmt.Sprintf(` AND "timestamp" >= $%d`, argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	query += ` ORDER BY "timestamp" DESC NULLS LAST`

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}
	return query, args
}

// SelectRecords returns classified posts matching q, newest first.
func (s *Store) SelectRecords(ctx context.Context, q domain.RecordQuery) ([]domain.RawRecord, error) {
	query, args := buildRecordQuery(q)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query disaster posts: %w", err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var id, text, ts, genuine, typ, location, severity, lat, lng *string
		if err := rows.Scan(&id, &text, &ts, &genuine, &typ, &location, &severity, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scan disaster post: %w", err)
		}
		records = append(records, domain.RawRecord{
			ID:              nullable(id),
			Text:            nullable(text),
			Timestamp:       nullable(ts),
			GenuineDisaster: nullable(genuine),
			DisasterType:    nullable(typ),
			Location:        nullable(location),
			SeverityScore:   nullable(severity),
			Latitude:        nullable(lat),
			Longitude:       nullable(lng),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read disaster posts: %w", err)
	}
	return records, nil
}

// RecentGenuine returns the newest limit posts flagged as genuine.
func (s *Store) RecentGenuine(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	return s.SelectRecords(ctx, domain.RecordQuery{GenuineOnly: true, Limit: limit})
}

// nullable keeps SQL NULL as a nil interface rather than a typed nil pointer.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

const helpColumns = `id, name, location, contact_info, emergency_type,
			   other_emergency_details, description, status, confidence_score, created_at`

// InsertHelpRequest stores a new help request.
func (s *Store) InsertHelpRequest(ctx context.Context, req domain.HelpRequest) error {
	query := `
		INSERT INTO help_requests (` + helpColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.Exec(ctx, query,
		req.ID, req.Name, req.Location, req.ContactInfo, string(req.EmergencyType),
		req.OtherDetails, req.Description, string(req.Status), string(req.Confidence), req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert help request %s: %w", req.ID, err)
	}
	return nil
}

// ListHelpRequests returns every help request, newest first.
func (s *Store) ListHelpRequests(ctx context.Context) ([]domain.HelpRequest, error) {
	rows, err := s.db.Query(ctx, `SELECT `+helpColumns+` FROM help_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query help requests: %w", err)
	}
	defer rows.Close()

	var reqs []domain.HelpRequest
	for rows.Next() {
		req, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read help requests: %w", err)
	}
	return reqs, nil
}

// UpdateHelpStatus sets the status of one request and returns the stored row.
func (s *Store) UpdateHelpStatus(ctx context.Context, id string, status domain.HelpStatus) (domain.HelpRequest, error) {
	query := `
		UPDATE help_requests SET status = $2
		WHERE id = $1
		RETURNING ` + helpColumns

	req, err := scanHelpRequest(s.db.QueryRow(ctx, query, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.HelpRequest{}, domain.ErrNotFound
	}
	return req, err
}

func scanHelpRequest(row pgx.Row) (domain.HelpRequest, error) {
	var req domain.HelpRequest
	var typ, status, confidence string
	var details *string
	err := row.Scan(
		&req.ID, &req.Name, &req.Location, &req.ContactInfo, &typ,
		&details, &req.Description, &status, &confidence, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HelpRequest{}, err
		}
		return domain.HelpRequest{}, fmt.Errorf("scan help request: %w", err)
	}
	req.EmergencyType = domain.EmergencyType(typ)
	req.Status = domain.HelpStatus(status)
	req.Confidence = domain.Confidence(confidence)
	if details != nil {
		req.OtherDetails = *details
	}
	return req, nil
}

// FindCredential returns the stored login for username.
func (s *Store) FindCredential(ctx context.Context, username string) (domain.ResponderCredential, error) {
	query := `
		SELECT username, password_hash, last_login, created_at
		FROM firstresponder_credentials
		WHERE username = $1`

	var cred domain.ResponderCredential
	var lastLogin *time.Time
	err := s.db.QueryRow(ctx, query, username).Scan(&cred.Username, &cred.PasswordHash, &lastLogin, &cred.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResponderCredential{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ResponderCredential{}, fmt.Errorf("find credential: %w", err)
	}
	if lastLogin != nil {
		cred.LastLogin = *lastLogin
	}
	return cred, nil
}

// TouchLastLogin stamps a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE firstresponder_credentials SET last_login = $2 WHERE username = $1`, username, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
