package database

import (
	"fmt"

	"invoiceaudit/invoice"
	"invoiceaudit/quality"
)

// UpsertSupplierConfig сохраняет договорные условия поставщика.
func (s *Store) UpsertSupplierConfig(supplier string, cfg quality.SupplierConfig) error {
	if supplier == "" {
		return fmt.Errorf("supplier name is required")
	}
	_, err := s.conn.Exec(`
		INSERT INTO supplier_configs (supplier, free_shipping_threshold, max_fee)
		VALUES (?, ?, ?)
		ON CONFLICT(supplier) DO UPDATE SET
			free_shipping_threshold = excluded.free_shipping_threshold,
			max_fee                 = excluded.max_fee`,
		supplier, cfg.FreeShippingThreshold, cfg.MaxFee)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier config: %w", err)
	}
	return nil
}

// LoadSupplierConfigs загружает условия всех поставщиков.
// Поставщик без записи получает нулевые значения при детектировании.
func (s *Store) LoadSupplierConfigs() (map[string]quality.SupplierConfig, error) {
	rows, err := s.conn.Query(`SELECT supplier, free_shipping_threshold, max_fee FROM supplier_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier configs: %w", err)
	}
	defer rows.Close()

	configs := map[string]quality.SupplierConfig{}
	for rows.Next() {
		var supplier string
		var cfg quality.SupplierConfig
		if err := rows.Scan(&supplier, &cfg.FreeShippingThreshold, &cfg.MaxFee); err != nil {
			return nil, fmt.Errorf("failed to scan supplier config: %w", err)
		}
		configs[supplier] = cfg
	}
	return configs, rows.Err()
}

// UpsertSupplierAlias сохраняет алиас имени поставщика.
func (s *Store) UpsertSupplierAlias(rawName, canonical string) error {
	if rawName == "" || canonical == "" {
		return fmt.Errorf("raw name and canonical name are required")
	}
	_, err := s.conn.Exec(`
		INSERT INTO supplier_aliases (raw_name, canonical)
		VALUES (?, ?)
		ON CONFLICT(raw_name) DO UPDATE SET canonical = excluded.canonical`,
		rawName, canonical)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier alias: %w", err)
	}
	return nil
}

// LoadAliasTable загружает таблицу канонизации имен поставщиков.
func (s *Store) LoadAliasTable() (*invoice.AliasTable, error) {
	rows, err := s.conn.Query(`SELECT raw_name, canonical FROM supplier_aliases`)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier aliases: %w", err)
	}
	defer rows.Close()

	aliases := map[string]string{}
	for rows.Next() {
		var raw, canonical string
		if err := rows.Scan(&raw, &canonical); err != nil {
			return nil, fmt.Errorf("failed to scan supplier alias: %w", err)
		}
		aliases[raw] = canonical
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoice.NewAliasTable(aliases), nil
}
