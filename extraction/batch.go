package extraction

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"invoiceaudit/database"
)

// DocumentID строит стабильный идентификатор документа по содержимому
// файла: один и тот же файл всегда дает один и тот же идентификатор,
// что делает повторную загрузку идемпотентной.
func DocumentID(content []byte) string {
	sum := sha256.Sum256(content)
	return uuid.NewSHA1(uuid.NameSpaceOID, sum[:]).String()
}

// FileResult итог обработки одного файла.
type FileResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Skipped    bool   `json:"skipped"` // Документ уже сохранен, извлечение не выполнялось
	Error      string `json:"error,omitempty"`
}

// BatchResult итог пакетной обработки.
type BatchResult struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Files     []FileResult `json:"files"`
}

// BatchProcessor последовательно прогоняет файлы через извлечение
// и сохраняет результаты. Файлы независимы: отказ одного не прерывает
// остальные. Уже сохраненные документы пропускаются, если не задан Force.
type BatchProcessor struct {
	client *Client
	store  *database.Store
	logger *slog.Logger

	// Force выполняет извлечение заново даже для сохраненных документов.
	Force bool
}

// NewBatchProcessor создает пакетный обработчик.
func NewBatchProcessor(client *Client, store *database.Store) *BatchProcessor {
	return &BatchProcessor{
		client: client,
		store:  store,
		logger: slog.Default().With("component", "extraction_batch"),
	}
}

// ProcessFile обрабатывает один файл: идентификатор по содержимому,
// проверка дубликата, извлечение, идемпотентное сохранение.
func (p *BatchProcessor) ProcessFile(ctx context.Context, path string) FileResult {
	result := FileResult{Filename: filepath.Base(path)}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("read failed: %v", err)
		return result
	}
	result.DocumentID = DocumentID(content)

	if !p.Force {
		exists, err := p.store.HasDocument(result.DocumentID)
		if err != nil {
			result.Error = fmt.Sprintf("duplicate check failed: %v", err)
			return result
		}
		if exists {
			result.Skipped = true
			return result
		}
	}

	rec, rawText, err := p.client.ExtractFile(ctx, path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := p.store.SaveDocument(result.DocumentID, result.Filename, rec, rawText); err != nil {
		result.Error = fmt.Sprintf("save failed: %v", err)
		return result
	}
	return result
}

// ProcessDir обрабатывает все поддерживаемые файлы каталога.
// Отмена контекста останавливает выдачу новых запросов на извлечение;
// уже сохраненные документы остаются сохраненными.
func (p *BatchProcessor) ProcessDir(ctx context.Context, dir string) (BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to read dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var batch BatchResult
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		result := p.ProcessFile(ctx, path)
		batch.Files = append(batch.Files, result)
		switch {
		case result.Error != "":
			batch.Failed++
			p.logger.Error("file failed", "file", result.Filename, "error", result.Error)
		case result.Skipped:
			batch.Skipped++
			p.logger.Info("file skipped (already ingested)", "file", result.Filename)
		default:
			batch.Processed++
		}
	}
	return batch, nil
}
