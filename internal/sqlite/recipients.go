package sqlite

import (
	"context"
	"fmt"
	"time"
)

// AddRecipient persists a distribution list address. Re-adding an existing
// address is a no-op.
func (db *DB) AddRecipient(ctx context.Context, address string) error {
	_, err := db.writeDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO recipients (address, created_at) VALUES (?, ?)`,
		address, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add recipient: %w", err)
	}
	return nil
}

// RemoveRecipient deletes an address from the distribution list. Removing an
// unknown address is a no-op.
func (db *DB) RemoveRecipient(ctx context.Context, address string) error {
	_, err := db.writeDB.ExecContext(ctx,
		`DELETE FROM recipients WHERE address = ?`, address,
	)
	if err != nil {
		return fmt.Errorf("failed to remove recipient: %w", err)
	}
	return nil
}

// ListRecipients returns all persisted addresses in insertion order.
func (db *DB) ListRecipients(ctx context.Context) ([]string, error) {
	rows, err := db.readDB.QueryContext(ctx,
		`SELECT address FROM recipients ORDER BY created_at ASC, address ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipient rows: %w", err)
	}
	return addresses, nil
}
