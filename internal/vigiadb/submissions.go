package vigiadb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vigia-app/vigia/internal/models"
)

// InsertSubmission records a new submission in the audit trail.
func (d *DB) InsertSubmission(ctx context.Context, sub models.Submission) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO submissions (id, address, tx_hash, cid, latitude, longitude, description, category, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Address, sub.TxHash, sub.CID, sub.Latitude, sub.Longitude,
		sub.Description, sub.Category, sub.Status, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission %s: %w", sub.ID, err)
	}

	slog.Info("submission recorded", "id", sub.ID, "address", sub.Address, "category", sub.Category)
	return nil
}

// UpdateSubmissionStatus transitions a submission and attaches its transaction
// hash once known.
func (d *DB) UpdateSubmissionStatus(ctx context.Context, id, status, txHash string) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE submissions
		SET status = ?, tx_hash = ?, updated_at = datetime('now')
		WHERE id = ?`,
		status, txHash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of submission %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s not found", id)
	}
	return nil
}

// ListSubmissions returns the audit trail for an address, newest first. An
// empty address returns every submission.
func (d *DB) ListSubmissions(ctx context.Context, address string) ([]models.Submission, error) {
	query := `
		SELECT id, address, tx_hash, cid, latitude, longitude, description, category, status, created_at
		FROM submissions`
	args := []any{}
	if address != "" {
		query += " WHERE address = ?"
		args = append(args, address)
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.Address, &s.TxHash, &s.CID, &s.Latitude, &s.Longitude,
			&s.Description, &s.Category, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return subs, nil
}
