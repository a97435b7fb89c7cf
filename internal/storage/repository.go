// Package storage is the SQLite-backed ItemStore and PermissionSource.
// The schema is managed by embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"followe/internal/core"
	"followe/internal/store"
)

const permissionKey = "notification_permission"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const itemColumns = "id, title, description, amount_cents, category, anchor_date, primary_time, extra_times, rule, priority, is_active, created_at, updated_at"

func (r *SQLiteRepository) GetAll(ctx context.Context, f store.ListFilter) ([]core.Item, error) {
	query := "SELECT " + itemColumns + " FROM items"
	var (
		where []string
		args  []any
	)
	if f.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, boolToInt(*f.Active))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Item, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Item{}, store.ErrNotFound
	}
	if err != nil {
		return core.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, item core.Item) (core.Item, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.Item{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	extras, err := json.Marshal(orEmpty(item.ExtraTimes))
	if err != nil {
		return core.Item{}, fmt.Errorf("encode extra times: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, item.Amount.Cents,
		string(item.Category), item.AnchorDate.Format("2006-01-02"),
		item.PrimaryTime, string(extras), string(item.Rule), string(item.Priority),
		boolToInt(item.IsActive),
		item.CreatedAt.Format(time.RFC3339Nano), item.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, item core.Item) (core.Item, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.Item{}, err
	}
	prev, err := r.Get(ctx, item.ID)
	if err != nil {
		return core.Item{}, err
	}
	item.CreatedAt = prev.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	extras, err := json.Marshal(orEmpty(item.ExtraTimes))
	if err != nil {
		return core.Item{}, fmt.Errorf("encode extra times: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, amount_cents = ?, category = ?,
			anchor_date = ?, primary_time = ?, extra_times = ?, rule = ?, priority = ?,
			is_active = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Description, item.Amount.Cents, string(item.Category),
		item.AnchorDate.Format("2006-01-02"), item.PrimaryTime, string(extras),
		string(item.Rule), string(item.Priority), boolToInt(item.IsActive),
		item.UpdatedAt.Format(time.RFC3339Nano), item.ID,
	)
	if err != nil {
		return core.Item{}, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetActive(ctx context.Context, id string, active bool) (core.Item, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE items SET is_active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return core.Item{}, fmt.Errorf("set active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Item{}, fmt.Errorf("set active: %w", err)
	}
	if n == 0 {
		return core.Item{}, store.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *SQLiteRepository) Current(ctx context.Context) (store.PermissionState, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", permissionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return store.PermissionNotAsked, nil
	}
	if err != nil {
		return "", fmt.Errorf("read permission: %w", err)
	}
	state := store.PermissionState(value)
	if !state.Valid() {
		return store.PermissionNotAsked, nil
	}
	return state, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, state store.PermissionState) error {
	if !state.Valid() {
		return store.ErrInvalidPermission
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		permissionKey, string(state),
	)
	if err != nil {
		return fmt.Errorf("store permission: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (core.Item, error) {
	var (
		item                             core.Item
		category, rule, priority         string
		anchor, extras, created, updated string
		active                           int
	)
	err := row.Scan(
		&item.ID, &item.Title, &item.Description, &item.Amount.Cents,
		&category, &anchor, &item.PrimaryTime, &extras, &rule, &priority,
		&active, &created, &updated,
	)
	if err != nil {
		return core.Item{}, err
	}

	item.Category = core.Category(category)
	item.Rule = core.Rule(rule)
	item.Priority = core.Priority(priority)
	item.IsActive = active != 0

	day, err := time.Parse("2006-01-02", anchor)
	if err != nil {
		return core.Item{}, fmt.Errorf("parse anchor date %q: %w", anchor, err)
	}
	item.AnchorDate = core.NewDate(day.Year(), int(day.Month()), day.Day())

	if err := json.Unmarshal([]byte(extras), &item.ExtraTimes); err != nil {
		return core.Item{}, fmt.Errorf("decode extra times: %w", err)
	}
	if len(item.ExtraTimes) == 0 {
		item.ExtraTimes = nil
	}

	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return core.Item{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return core.Item{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
