package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the contacts table. Each statement is idempotent
// so Migrate can run on every start-up.
//
// Timestamps use clock_timestamp(), not now(): now() is the transaction start,
// which precedes the advisory lock wait and would let a row inserted after its
// primary carry an earlier created_at.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id              BIGSERIAL PRIMARY KEY,
		email           TEXT,
		phone_number    TEXT,
		link_precedence TEXT NOT NULL CHECK (link_precedence IN ('primary', 'secondary')),
		linked_id       BIGINT REFERENCES contacts (id),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		CONSTRAINT contacts_link_shape CHECK ((link_precedence = 'primary') = (linked_id IS NULL)),
		CONSTRAINT contacts_has_identifier CHECK (email IS NOT NULL OR phone_number IS NOT NULL)
	)`,
	`ALTER TABLE contacts ALTER COLUMN created_at SET DEFAULT clock_timestamp()`,
	`ALTER TABLE contacts ALTER COLUMN updated_at SET DEFAULT clock_timestamp()`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts (email) WHERE email IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_phone_number ON contacts (phone_number) WHERE phone_number IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts (linked_id) WHERE linked_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_email_phone ON contacts (COALESCE(email, ''), COALESCE(phone_number, ''))`,
}

// Migrate applies the contact schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
