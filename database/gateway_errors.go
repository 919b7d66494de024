package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"donation-checkout-api/models"
)

const defaultGatewayErrorLimit = 50

func (c *Connection) RecordGatewayError(ctx context.Context, category, message string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id := uuid.New().String()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO gateway_errors (id, category, message, created_at)
		VALUES (?, ?, ?, NOW())
	`, id, category, message)
	if err != nil {
		return fmt.Errorf("error recording gateway error: %v", err)
	}

	log.Printf("Recorded gateway error %s [%s]", id, category)
	return nil
}

// ListGatewayErrors returns the most recent errors first.
func (c *Connection) ListGatewayErrors(ctx context.Context, limit int) ([]models.GatewayError, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultGatewayErrorLimit
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, category, message, created_at
		FROM gateway_errors
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing gateway errors: %v", err)
	}
	defer rows.Close()

	var entries []models.GatewayError
	for rows.Next() {
		var entry models.GatewayError
		if err := rows.Scan(&entry.ID, &entry.Category, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning gateway error: %v", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
