package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"invoiceaudit/invoice"
)

// ErrDocumentNotFound документ с указанным идентификатором не сохранен.
var ErrDocumentNotFound = errors.New("document not found")

// StoredDocument сохраненный результат извлечения одного файла.
type StoredDocument struct {
	DocumentID string                `json:"document_id"`
	Filename   string                `json:"filename"`
	Record     invoice.InvoiceRecord `json:"record"`
	RawText    string                `json:"raw_text"`
	CreatedAt  string                `json:"created_at"`
	UpdatedAt  string                `json:"updated_at"`
}

// SaveDocument идемпотентно сохраняет распознанный счет под стабильным
// идентификатором документа: повторная обработка того же файла безопасна.
//
// Здесь же применяется единственная контролируемая правка записи:
// экстрактор временами дублирует номер счета в ссылку заказа, такая
// ссылка — шум и затирается до сохранения. Сырой текст извлечения
// сохраняется дословно.
func (s *Store) SaveDocument(docID, filename string, rec invoice.InvoiceRecord, rawText string) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}

	rec.DocumentID = docID
	if rec.OrderRef != "" && rec.OrderRef == rec.InvoiceNumber {
		rec.OrderRef = ""
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO documents (document_id, filename, supplier, invoice_number, invoice_date, record_json, raw_text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			filename       = excluded.filename,
			supplier       = excluded.supplier,
			invoice_number = excluded.invoice_number,
			invoice_date   = excluded.invoice_date,
			record_json    = excluded.record_json,
			raw_text       = excluded.raw_text,
			updated_at     = datetime('now')`,
		docID, filename, rec.Supplier, rec.InvoiceNumber, rec.Date, string(recordJSON), rawText)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// HasDocument сообщает, сохранен ли документ. Используется для пропуска
// повторного извлечения уже обработанных файлов.
func (s *Store) HasDocument(docID string) (bool, error) {
	var one int
	err := s.conn.QueryRow(`SELECT 1 FROM documents WHERE document_id = ?`, docID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return true, nil
}

// GetDocument возвращает сохраненный документ.
func (s *Store) GetDocument(docID string) (*StoredDocument, error) {
	row := s.conn.QueryRow(`
		SELECT document_id, filename, record_json, raw_text, created_at, updated_at
		FROM documents WHERE document_id = ?`, docID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments возвращает все сохраненные документы.
func (s *Store) ListDocuments() ([]StoredDocument, error) {
	rows, err := s.conn.Query(`
		SELECT document_id, filename, record_json, raw_text, created_at, updated_at
		FROM documents ORDER BY invoice_date, document_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []StoredDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// AllRecords возвращает все записи счетов — снимок, по которому
// пересчитываются нормализованные строки.
func (s *Store) AllRecords() ([]invoice.InvoiceRecord, error) {
	docs, err := s.ListDocuments()
	if err != nil {
		return nil, err
	}
	records := make([]invoice.InvoiceRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.Record)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*StoredDocument, error) {
	var doc StoredDocument
	var recordJSON string
	var rawText sql.NullString

	if err := row.Scan(&doc.DocumentID, &doc.Filename, &recordJSON, &rawText, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recordJSON), &doc.Record); err != nil {
		// Испорченная запись не валит весь список: документ возвращается
		// с пустой структурой, решение принимает вызывающая сторона.
		doc.Record = invoice.InvoiceRecord{DocumentID: doc.DocumentID}
	}
	doc.RawText = nullString(rawText)
	return &doc, nil
}
