package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	"reconcile/pkg/platform/sentinel"
	txcontext "reconcile/pkg/platform/tx"
)

const contactColumns = `id, email, phone_number, link_precedence, linked_id, created_at, updated_at`

// PostgresStore persists contacts in PostgreSQL. Statements run inside the
// transaction carried by the context when there is one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the pool for transaction runners and health checks.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE ($1::text IS NOT NULL AND email = $1)
		   OR ($2::text IS NOT NULL AND phone_number = $2)
		ORDER BY created_at, id`
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, nullString(email), nullString(phoneNumber))
	if err != nil {
		return nil, fmt.Errorf("find contacts by email or phone: %w", mapPgError(err))
	}
	return scanContacts(rows)
}

func (s *PostgresStore) Insert(ctx context.Context, nc models.NewContact) (*models.Contact, error) {
	var linkedID any
	if !nc.LinkedID.IsZero() {
		linkedID = nc.LinkedID.Int64()
	}
	query := `INSERT INTO contacts (email, phone_number, link_precedence, linked_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, clock_timestamp(), clock_timestamp())
		RETURNING ` + contactColumns
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, query,
		nullString(nc.Email), nullString(nc.PhoneNumber), string(nc.LinkPrecedence), linkedID)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", mapPgError(err))
	}
	return c, nil
}

func (s *PostgresStore) FindPrimariesByIDs(ctx context.Context, ids []id.ContactID) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE id = ANY($1::bigint[]) AND link_precedence = 'primary'
		ORDER BY created_at, id`
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, pq.Array(toInt64s(ids)))
	if err != nil {
		return nil, fmt.Errorf("find primaries by ids: %w", mapPgError(err))
	}
	return scanContacts(rows)
}

// DemoteAndRelink rewrites the old roots and their secondaries in a single
// statement so the merge is atomic even outside a transaction.
func (s *PostgresStore) DemoteAndRelink(ctx context.Context, oldRootIDs []id.ContactID, newPrimaryID id.ContactID) (int, error) {
	query := `UPDATE contacts
		SET link_precedence = 'secondary', linked_id = $2, updated_at = clock_timestamp()
		WHERE id = ANY($1::bigint[])
		   OR (link_precedence = 'secondary' AND linked_id = ANY($1::bigint[]))`
	res, err := txcontext.Or(ctx, s.db).ExecContext(ctx, query, pq.Array(toInt64s(oldRootIDs)), newPrimaryID.Int64())
	if err != nil {
		return 0, fmt.Errorf("demote and relink contacts: %w", mapPgError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("demote and relink rows affected: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) FindClusterMembers(ctx context.Context, primaryID id.ContactID) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE id = $1 OR (link_precedence = 'secondary' AND linked_id = $1)
		ORDER BY created_at, id`
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, primaryID.Int64())
	if err != nil {
		return nil, fmt.Errorf("find cluster members: %w", mapPgError(err))
	}
	return scanContacts(rows)
}

func (s *PostgresStore) FindExact(ctx context.Context, email, phoneNumber string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE email IS NOT DISTINCT FROM $1::text
		  AND phone_number IS NOT DISTINCT FROM $2::text
		ORDER BY created_at, id
		LIMIT 1`
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, query, nullString(email), nullString(phoneNumber))
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find exact contact: %w", mapPgError(err))
	}
	return c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, query, contactID.Int64())
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find contact by id: %w", mapPgError(err))
	}
	return c, nil
}

// Ping checks connectivity for readiness probes.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type contactRow interface {
	Scan(dest ...any) error
}

func scanContact(row contactRow) (*models.Contact, error) {
	var (
		c          models.Contact
		email      sql.NullString
		phone      sql.NullString
		precedence string
		linkedID   sql.NullInt64
	)
	if err := row.Scan(&c.ID, &email, &phone, &precedence, &linkedID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Email = email.String
	c.PhoneNumber = phone.String
	c.LinkPrecedence = models.LinkPrecedence(precedence)
	if linkedID.Valid {
		c.LinkedID = id.ContactID(linkedID.Int64)
	}
	return &c, nil
}

func scanContacts(rows *sql.Rows) ([]*models.Contact, error) {
	defer rows.Close()
	out := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", mapPgError(err))
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toInt64s(ids []id.ContactID) []int64 {
	out := make([]int64, len(ids))
	for i, contactID := range ids {
		out[i] = contactID.Int64()
	}
	return out
}

// PostgreSQL error codes the store translates into sentinels.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// mapPgError wraps conflict-class PostgreSQL errors with sentinel.ErrConflict.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		}
	}
	return err
}
