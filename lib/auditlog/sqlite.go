// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS parcels (
	direction    TEXT    NOT NULL,
	parcel_id    TEXT    NOT NULL,
	receiver     TEXT    NOT NULL,
	sender       TEXT    NOT NULL,
	roots        BLOB    NOT NULL,
	capsules     INTEGER NOT NULL,
	bundle_size  INTEGER NOT NULL,
	added_at     INTEGER NOT NULL,
	committed_at INTEGER,
	PRIMARY KEY (direction, parcel_id)
);
CREATE INDEX IF NOT EXISTS parcels_pending ON parcels (direction) WHERE committed_at IS NULL;
`

const selectColumns = `SELECT direction, parcel_id, receiver, sender, roots, capsules, bundle_size, added_at, committed_at FROM parcels`

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path     string
	PoolSize int
	Clock    clock.Clock
	Logger   *slog.Logger
}

// SQLite is a Log stored in a SQLite database.
type SQLite struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// OpenSQLite opens or creates the audit database at config.Path.
func OpenSQLite(config SQLiteConfig) (*SQLite, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     config.Path,
		PoolSize: config.PoolSize,
		Schema:   schema,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &SQLite{pool: pool, clock: clock.OrReal(config.Clock), logger: logger}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.pool.Close()
}

func (s *SQLite) add(ctx context.Context, direction Direction, parcel *peer.Parcel, b *bundle.Bundle) error {
	entry := newEntry(direction, parcel, b, s.clock.Now())
	roots, err := codec.Marshal(entry.Roots)
	if err != nil {
		return fmt.Errorf("encoding roots: %w", err)
	}
	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT OR IGNORE INTO parcels
				(direction, parcel_id, receiver, sender, roots, capsules, bundle_size, added_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				string(entry.Direction),
				entry.ParcelID,
				entry.Receiver.String(),
				entry.Sender,
				roots,
				entry.Capsules,
				entry.BundleSize,
				entry.AddedAt.UnixNano(),
			}})
	})
	if err != nil {
		return fmt.Errorf("adding %s parcel %s: %w", direction, entry.ParcelID, err)
	}
	return nil
}

func (s *SQLite) commit(ctx context.Context, direction Direction, parcel *peer.Parcel) error {
	parcelID := parcel.ID()
	now := s.clock.Now().UnixNano()
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE parcels SET committed_at = ?
				WHERE direction = ? AND parcel_id = ? AND committed_at IS NULL`,
			&sqlitex.ExecOptions{Args: []any{now, string(direction), parcelID}})
		if err != nil {
			return err
		}
		if conn.Changes() > 0 {
			return nil
		}
		exists := false
		err = sqlitex.Execute(conn,
			`SELECT 1 FROM parcels WHERE direction = ? AND parcel_id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{string(direction), parcelID},
				ResultFunc: func(*sqlite.Stmt) error {
					exists = true
					return nil
				},
			})
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s parcel %s", ErrUnknownParcel, direction, parcelID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("committing %s parcel %s: %w", direction, parcelID, err)
	}
	return nil
}

func (s *SQLite) AddOutMessage(ctx context.Context, parcel *peer.Parcel, b *bundle.Bundle) error {
	return s.add(ctx, Outgoing, parcel, b)
}

func (s *SQLite) CommitOutMessage(ctx context.Context, parcel *peer.Parcel) error {
	return s.commit(ctx, Outgoing, parcel)
}

func (s *SQLite) AddInMessage(ctx context.Context, parcel *peer.Parcel, b *bundle.Bundle) error {
	return s.add(ctx, Incoming, parcel, b)
}

func (s *SQLite) CommitInMessage(ctx context.Context, parcel *peer.Parcel) error {
	return s.commit(ctx, Incoming, parcel)
}

func (s *SQLite) Entries(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, selectColumns+` ORDER BY added_at, rowid`)
}

func (s *SQLite) Pending(ctx context.Context, direction Direction) ([]Entry, error) {
	return s.query(ctx, selectColumns+` WHERE direction = ? AND committed_at IS NULL ORDER BY added_at, rowid`, string(direction))
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	var entries []Entry
	err := s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanEntry(stmt)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	return entries, nil
}

func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	receiver, err := ref.Parse(stmt.ColumnText(2))
	if err != nil {
		return Entry{}, fmt.Errorf("parcel %s: %w", stmt.ColumnText(1), err)
	}
	encodedRoots := make([]byte, stmt.ColumnLen(4))
	stmt.ColumnBytes(4, encodedRoots)
	var roots []ref.Ref
	if err := codec.Unmarshal(encodedRoots, &roots); err != nil {
		return Entry{}, fmt.Errorf("parcel %s: decoding roots: %w", stmt.ColumnText(1), err)
	}

	entry := Entry{
		Direction:  Direction(stmt.ColumnText(0)),
		ParcelID:   stmt.ColumnText(1),
		Receiver:   receiver,
		Sender:     stmt.ColumnText(3),
		Roots:      roots,
		Capsules:   stmt.ColumnInt(5),
		BundleSize: stmt.ColumnInt(6),
		AddedAt:    time.Unix(0, stmt.ColumnInt64(7)).UTC(),
	}
	if stmt.ColumnType(8) != sqlite.TypeNull {
		entry.CommittedAt = time.Unix(0, stmt.ColumnInt64(8)).UTC()
	}
	return entry, nil
}
