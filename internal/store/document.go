// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fanhub/internal/backend"
	"fanhub/internal/database"
)

// DocumentStore persists JSON documents under slash-separated paths. It
// implements backend.DocumentStore.
type DocumentStore struct {
	db     *sql.DB
	driver database.Driver
}

var _ backend.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *sql.DB, driver database.Driver) *DocumentStore {
	return &DocumentStore{db: db, driver: driver}
}

// Insert stores data under path and returns the new document id.
func (s *DocumentStore) Insert(ctx context.Context, path string, data []byte) (string, error) {
	if !json.Valid(data) {
		return "", fmt.Errorf("insert document: invalid JSON")
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.driver.Rebind(`
		INSERT INTO documents (id, path, data, created_at)
		VALUES ($1, $2, $3, $4)
	`), id, path, string(data), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// Query returns the documents under q.Path ordered by the numeric field
// q.OrderBy. Documents missing the field sort last; ties are broken by
// insertion order in the same direction.
func (s *DocumentStore) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}

	// q.OrderBy is restricted to identifier characters by Validate.
	var key string
	switch s.driver {
	case database.SQLite:
		key = `CAST(json_extract(data, '$.` + q.OrderBy + `') AS REAL)`
	default:
		key = `CAST(data ->> '` + q.OrderBy + `' AS DOUBLE PRECISION)`
	}

	rows, err := s.db.QueryContext(ctx, s.driver.Rebind(`
		SELECT id, data FROM documents
		WHERE path = $1
		ORDER BY `+key+` `+dir+` NULLS LAST, seq `+dir+`
		LIMIT $2
	`), q.Path, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		var d backend.Document
		var data []byte
		if err := rows.Scan(&d.ID, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Data = json.RawMessage(data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
