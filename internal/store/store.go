// Package store implements the durable, partitioned key-value database that
// every other component sits on. Partitions map to SQLite tables with a
// uniform shape: a primary key, an opaque payload, an integer sort key and a
// text tag backing the secondary indexes.
//
// Operations are serialized per partition. The original runtime was
// single-threaded; in a multi-goroutine environment each partition needs
// explicit mutual exclusion to keep individual operations atomic.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/nazarialireza/invextry-offline/internal/dbx"
	"github.com/nazarialireza/invextry-offline/internal/logging"
	"github.com/nazarialireza/invextry-offline/internal/models"
	"github.com/nazarialireza/invextry-offline/internal/store/migrations"
)

// Partition names. These are part of the persisted local schema.
const (
	PartitionAPICache   = "apiCache"
	PartitionProducts   = "products"
	PartitionSales      = "sales"
	PartitionPurchases  = "purchases"
	PartitionCustomers  = "customers"
	PartitionSuppliers  = "suppliers"
	PartitionSettings   = "settings"
	PartitionSyncQueue  = "syncQueue"
	PartitionDeadLetter = "deadLetter"
)

// tables maps partition names to their SQLite tables.
var tables = map[string]string{
	PartitionAPICache:   "api_cache",
	PartitionProducts:   "products",
	PartitionSales:      "sales",
	PartitionPurchases:  "purchases",
	PartitionCustomers:  "customers",
	PartitionSuppliers:  "suppliers",
	PartitionSettings:   "settings",
	PartitionSyncQueue:  "sync_queue",
	PartitionDeadLetter: "dead_letter",
}

// Row is a single record in a partition. Payload is opaque to the store;
// SortKey and Tag feed the secondary indexes (storedAt for the response
// cache, enqueuedAt/entityType for the queue, natural keys for entities).
type Row struct {
	Key     string
	Payload []byte
	SortKey int64
	Tag     string
}

// Store is a partitioned SQLite key-value store. Construct it with Open.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu sync.Mutex
	// locks holds one mutex per partition, lazily created.
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the database at dsn and brings the schema up to
// date without destroying existing data. It is idempotent. Failures are
// reported as models.ErrStorageUnavailable so callers can degrade to
// network-only mode.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", models.ErrStorageUnavailable, dsn, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", models.ErrStorageUnavailable, err)
	}

	return &Store{
		db:    db,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for transactional helpers (dbx.WithTx).
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) partitionLock(partition string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[partition]
	if !ok {
		l = &sync.Mutex{}
		s.locks[partition] = l
	}
	return l
}

func tableFor(partition string) (string, error) {
	t, ok := tables[partition]
	if !ok {
		return "", fmt.Errorf("%w: unknown partition %q", models.ErrStorageUnavailable, partition)
	}
	return t, nil
}

// Get returns the single row stored under key, or models.ErrNotFound.
func (s *Store) Get(ctx context.Context, partition, key string) (*Row, error) {
	table, err := tableFor(partition)
	if err != nil {
		return nil, err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`SELECT key, payload, sort_key, tag FROM %s WHERE key = ?`, table)
	row := s.db.QueryRowContext(ctx, query, key)

	r := &Row{}
	if err := row.Scan(&r.Key, &r.Payload, &r.SortKey, &r.Tag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: select from %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return r, nil
}

// GetAll returns every row in the partition ordered by sort key then by
// insertion order. An empty partition yields an empty slice, never an error.
func (s *Store) GetAll(ctx context.Context, partition string) ([]Row, error) {
	table, err := tableFor(partition)
	if err != nil {
		return nil, err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`SELECT key, payload, sort_key, tag FROM %s ORDER BY sort_key ASC, rowid ASC`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: select from %s: %v", models.ErrStorageUnavailable, table, err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Payload, &r.SortKey, &r.Tag); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", models.ErrStorageUnavailable, table, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return result, nil
}

// GetByTag returns the rows whose tag equals tag, in sort-key order.
func (s *Store) GetByTag(ctx context.Context, partition, tag string) ([]Row, error) {
	table, err := tableFor(partition)
	if err != nil {
		return nil, err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`SELECT key, payload, sort_key, tag FROM %s WHERE tag = ? ORDER BY sort_key ASC, rowid ASC`, table)
	rows, err := s.db.QueryContext(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: select from %s: %v", models.ErrStorageUnavailable, table, err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Payload, &r.SortKey, &r.Tag); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", models.ErrStorageUnavailable, table, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return result, nil
}

// Put upserts the row by key. Last write wins; there is no optimistic
// concurrency. The upsert keeps the original rowid, so FIFO reads stay
// stable across updates.
func (s *Store) Put(ctx context.Context, partition string, r Row) error {
	table, err := tableFor(partition)
	if err != nil {
		return err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`INSERT INTO %s (key, payload, sort_key, tag)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
				sort_key = excluded.sort_key,
				tag = excluded.tag
	`, table)
	if _, err := s.db.ExecContext(ctx, query, r.Key, r.Payload, r.SortKey, r.Tag); err != nil {
		return fmt.Errorf("%w: upsert into %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return nil
}

// Delete removes the row under key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, partition, key string) error {
	table, err := tableFor(partition)
	if err != nil {
		return err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%w: delete from %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return nil
}

// DeleteWhere removes every row matched by keep returning false. It runs in
// a single transaction so the partition sees either all deletions or none.
func (s *Store) DeleteWhere(ctx context.Context, partition string, keep func(Row) bool) (int, error) {
	table, err := tableFor(partition)
	if err != nil {
		return 0, err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	deleted := 0
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := fmt.Sprintf(`SELECT key, payload, sort_key, tag FROM %s`, table)
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return err
		}

		var doomed []string
		for rows.Next() {
			var r Row
			if err := rows.Scan(&r.Key, &r.Payload, &r.SortKey, &r.Tag); err != nil {
				rows.Close()
				return err
			}
			if !keep(r) {
				doomed = append(doomed, r.Key)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		del := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table)
		for _, key := range doomed {
			if _, err := tx.ExecContext(ctx, del, key); err != nil {
				return err
			}
		}
		deleted = len(doomed)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: sweep %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return deleted, nil
}

// Count returns the number of rows in the partition.
func (s *Store) Count(ctx context.Context, partition string) (int, error) {
	table, err := tableFor(partition)
	if err != nil {
		return 0, err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return n, nil
}

// Clear empties the partition.
func (s *Store) Clear(ctx context.Context, partition string) error {
	table, err := tableFor(partition)
	if err != nil {
		return err
	}

	l := s.partitionLock(partition)
	l.Lock()
	defer l.Unlock()

	query := fmt.Sprintf(`DELETE FROM %s`, table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: clear %s: %v", models.ErrStorageUnavailable, table, err)
	}
	return nil
}

// ClearAll empties every partition. Used by the "clear offline data" path.
func (s *Store) ClearAll(ctx context.Context) error {
	for partition := range tables {
		if err := s.Clear(ctx, partition); err != nil {
			return err
		}
	}
	return nil
}

// Partitions lists the known partition names.
func Partitions() []string {
	names := make([]string, 0, len(tables))
	for p := range tables {
		names = append(names, p)
	}
	return names
}
