package database

import (
	"fmt"
	"time"

	"invoiceaudit/reference"
)

// UpsertOverride идемпотентно сохраняет ручное решение по артикулу.
// Ключ — код артикула: повторная запись заменяет предыдущее решение.
func (s *Store) UpsertOverride(ov reference.Override) error {
	if ov.Article == "" {
		return fmt.Errorf("override article is required")
	}
	switch ov.Kind {
	case reference.OverrideContract, reference.OverridePromo, reference.OverrideIgnore:
	default:
		return fmt.Errorf("unknown override kind: %q", ov.Kind)
	}

	createdAt := ov.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.conn.Exec(`
		INSERT INTO manual_overrides (article, kind, value, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(article) DO UPDATE SET
			kind       = excluded.kind,
			value      = excluded.value,
			comment    = excluded.comment,
			created_at = excluded.created_at`,
		ov.Article, string(ov.Kind), ov.Value, ov.Comment, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}
	return nil
}

// DeleteOverride удаляет решение по артикулу.
func (s *Store) DeleteOverride(article string) error {
	if _, err := s.conn.Exec(`DELETE FROM manual_overrides WHERE article = ?`, article); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// LoadOverrides загружает всю таблицу решений. Вызывается один раз
// в начале каждого анализа; дальше таблица только читается.
func (s *Store) LoadOverrides() (reference.Overrides, error) {
	rows, err := s.conn.Query(`SELECT article, kind, value, comment, created_at FROM manual_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	defer rows.Close()

	overrides := reference.Overrides{}
	for rows.Next() {
		var ov reference.Override
		var kind, createdAt string
		if err := rows.Scan(&ov.Article, &kind, &ov.Value, &ov.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		ov.Kind = reference.OverrideKind(kind)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			ov.CreatedAt = ts
		}
		overrides[ov.Article] = ov
	}
	return overrides, rows.Err()
}
