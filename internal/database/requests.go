package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/models"
)

func (db *DB) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	query := `INSERT INTO item_requests (description, requestor_id, created) VALUES (?, ?, ?)`
	if req.Created.IsZero() {
		req.Created = time.Now()
	}
	req.Created = dbTime(req.Created)
	result, err := db.ExecContext(ctx, query, req.Description, req.RequestorID, req.Created)
	if err != nil {
		return fmt.Errorf("failed to create item request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	return nil
}

func (db *DB) GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	query := `SELECT id, description, requestor_id, created FROM item_requests WHERE id = ?`
	var r models.ItemRequest
	err := db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Description, &r.RequestorID, &r.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item request: %w", err)
	}
	return &r, nil
}

func (db *DB) GetRequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error) {
	query := `SELECT id, description, requestor_id, created FROM item_requests
              WHERE requestor_id = ? ORDER BY created DESC, id DESC`
	return db.queryRequests(ctx, query, requestorID)
}

// GetRequestsExcluding pages through requests made by everyone except requestorID.
func (db *DB) GetRequestsExcluding(ctx context.Context, requestorID int64, offset, limit int) ([]*models.ItemRequest, error) {
	query := `SELECT id, description, requestor_id, created FROM item_requests
              WHERE requestor_id != ? ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`
	return db.queryRequests(ctx, query, requestorID, limit, offset)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query item requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.ItemRequest, 0)
	for rows.Next() {
		var r models.ItemRequest
		if err := rows.Scan(&r.ID, &r.Description, &r.RequestorID, &r.Created); err != nil {
			return nil, fmt.Errorf("failed to scan item request: %w", err)
		}
		requests = append(requests, &r)
	}
	return requests, rows.Err()
}
