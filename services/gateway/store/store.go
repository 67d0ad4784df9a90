// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists finalized reservations.
//
// # Description
//
// One row is inserted per reservation that the Cakery API accepted,
// carrying the reservation fields plus the upstream-issued order number.
// The kitchen reads the table back through DeliveriesToday to plan the
// day's deliveries.
//
// The database is opened lazily: a connection problem surfaces on the
// first operation, not at service startup, and is reported to the client
// of that operation as the terminal error message.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/happycake/gateway/services/gateway/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

// Client-facing persistence failure texts; delivered verbatim as terminal
// error messages.
var (
	ErrUnavailable = errors.New("Unable to connect to the database")
	ErrQuery       = errors.New("Failed to perform query execution")
)

// =============================================================================
// Interface
// =============================================================================

// ReservationStore is the persistence collaborator of the orchestrator.
// Inserts are all-or-nothing from the caller's perspective.
type ReservationStore interface {
	// SaveReservation inserts one finalized reservation.
	SaveReservation(ctx context.Context, body datatypes.ReservationBody, orderID string) error

	// DeliveriesToday lists reservations whose birthday is today.
	DeliveriesToday(ctx context.Context) ([]Delivery, error)

	// Close releases the underlying database handle.
	Close() error
}

// Delivery is one row of the day's delivery plan.
type Delivery struct {
	Cake        string `json:"cake"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Image       string `json:"image,omitempty"`
	Message     string `json:"message,omitempty"`
	OrderNumber string `json:"ordernumber"`
}

// =============================================================================
// SQLite Implementation
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS reservations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cake TEXT NOT NULL,
	name TEXT NOT NULL,
	byear TEXT NOT NULL,
	bmonth TEXT NOT NULL,
	bdate TEXT NOT NULL,
	address TEXT NOT NULL,
	city TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	ordernumber TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore implements ReservationStore on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the store and ensures the schema exists.
//
// # Inputs
//
//   - dsn: SQLite DSN, e.g. "file:happycake.db" or "file::memory:" in tests.
//   - logger: Optional; slog.Default() when nil.
func Open(dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reservations database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply reservations schema: %w", err)
	}

	logger.Info("reservations database ready", "dsn", dsn)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveReservation implements ReservationStore.
//
// # Outputs
//
//   - error: ErrUnavailable when the database cannot be reached,
//     ErrQuery when the insert itself fails. Both sentinels carry the
//     client-facing text.
func (s *SQLiteStore) SaveReservation(ctx context.Context, body datatypes.ReservationBody, orderID string) error {
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("reservations database unreachable", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	year, month, day := body.BirthdayParts()
	const insert = `
		INSERT INTO reservations
			(cake, name, byear, bmonth, bdate, address, city, image, message, ordernumber)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insert,
		body.Cake, body.Name, year, month, day,
		body.Address, body.City, body.Image, body.Message, orderID); err != nil {
		s.logger.Error("reservation insert failed", "order_id", orderID, "error", err)
		return fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return nil
}

// DeliveriesToday implements ReservationStore.
func (s *SQLiteStore) DeliveriesToday(ctx context.Context) ([]Delivery, error) {
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("reservations database unreachable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	const query = `
		SELECT cake, name, address, city, image, message, ordernumber
		FROM reservations
		WHERE bmonth = ? AND bdate = ?
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query,
		fmt.Sprintf("%02d", int(now.Month())), fmt.Sprintf("%02d", now.Day()))
	if err != nil {
		s.logger.Error("deliveries query failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	deliveries := []Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.Cake, &d.Name, &d.Address, &d.City,
			&d.Image, &d.Message, &d.OrderNumber); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return deliveries, nil
}

// Close implements ReservationStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ReservationStore = (*SQLiteStore)(nil)
