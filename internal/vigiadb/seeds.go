package vigiadb

import (
	"fmt"

	"github.com/vigia-app/vigia/internal/models"
)

// ListSeedReports returns the fixture records in identifier order.
func (d *DB) ListSeedReports() ([]models.SeedReport, error) {
	rows, err := d.conn.Query(`
		SELECT id, creator, latitude, longitude, image_url, description,
		       timestamp, status, confirmation_count, category
		FROM seed_reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seed reports: %w", err)
	}
	defer rows.Close()

	var seeds []models.SeedReport
	for rows.Next() {
		var s models.SeedReport
		if err := rows.Scan(&s.ID, &s.Creator, &s.Latitude, &s.Longitude, &s.ImageURL,
			&s.Description, &s.Timestamp, &s.Status, &s.ConfirmationCount, &s.Category); err != nil {
			return nil, fmt.Errorf("failed to scan seed report: %w", err)
		}
		seeds = append(seeds, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seed reports: %w", err)
	}
	return seeds, nil
}
