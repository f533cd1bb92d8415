package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// StoreConfig конфигурация подключения к БД.
type StoreConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store обертка для работы с базой данных аудита: распознанные счета,
// ручные решения по артикулам, условия поставщиков, алиасы имен.
// Производные таблицы (нормализованные строки, референсы, аномалии)
// не хранятся: они пересчитываются при каждом анализе.
type Store struct {
	conn *sql.DB
}

// NewStore создает новое подключение к базе данных аудита.
func NewStore(dbPath string) (*Store, error) {
	config := StoreConfig{}

	// In-memory SQLite должен жить на одном соединении, иначе каждое
	// новое соединение видит пустую БД без таблиц.
	if isInMemory(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewStoreWithConfig(dbPath, config)
}

// NewStoreWithConfig создает подключение с настройками пула.
func NewStoreWithConfig(dbPath string, config StoreConfig) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{conn: conn}
	if err := store.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// isInMemory определяет, что путь относится к in-memory SQLite.
func isInMemory(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// createTables применяет миграции схемы.
func (s *Store) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_id    TEXT PRIMARY KEY,
			filename       TEXT NOT NULL DEFAULT '',
			supplier       TEXT NOT NULL DEFAULT '',
			invoice_number TEXT NOT NULL DEFAULT '',
			invoice_date   TEXT NOT NULL DEFAULT '',
			record_json    TEXT NOT NULL DEFAULT '{}',
			raw_text       TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_supplier ON documents(supplier)`,
		`CREATE TABLE IF NOT EXISTS manual_overrides (
			article    TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			value      REAL NOT NULL DEFAULT 0,
			comment    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS supplier_configs (
			supplier                TEXT PRIMARY KEY,
			free_shipping_threshold REAL NOT NULL DEFAULT 0,
			max_fee                 REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS supplier_aliases (
			raw_name  TEXT PRIMARY KEY,
			canonical TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close закрывает подключение.
func (s *Store) Close() error {
	return s.conn.Close()
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
