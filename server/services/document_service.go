package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"invoiceaudit/database"
	"invoiceaudit/extraction"
	apperrors "invoiceaudit/server/errors"
)

// DocumentService загрузка и извлечение документов.
type DocumentService struct {
	store  *database.Store
	client *extraction.Client
}

// NewDocumentService создает сервис документов.
func NewDocumentService(store *database.Store, client *extraction.Client) *DocumentService {
	return &DocumentService{store: store, client: client}
}

// Ingest принимает содержимое загруженного файла, прогоняет извлечение
// и идемпотентно сохраняет результат. Повторная загрузка того же файла
// пропускает извлечение, если не задан force.
func (s *DocumentService) Ingest(ctx context.Context, filename string, content []byte, force bool) (extraction.FileResult, error) {
	if len(content) == 0 {
		return extraction.FileResult{}, apperrors.NewValidationError("пустой файл", nil)
	}
	if s.client == nil {
		return extraction.FileResult{}, apperrors.NewValidationError("извлечение не настроено: нет API ключа", nil)
	}

	// Извлечение работает по пути к файлу: содержимое кладется во
	// временный файл с исходным расширением.
	tempDir, err := os.MkdirTemp("", "invoiceaudit-upload-")
	if err != nil {
		return extraction.FileResult{}, apperrors.NewInternalError("не удалось создать временный каталог", err)
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, filepath.Base(filename))
	if err := os.WriteFile(tempPath, content, 0o600); err != nil {
		return extraction.FileResult{}, apperrors.NewInternalError("не удалось сохранить загруженный файл", err)
	}

	processor := extraction.NewBatchProcessor(s.client, s.store)
	processor.Force = force

	result := processor.ProcessFile(ctx, tempPath)
	if result.Error != "" {
		return result, apperrors.NewUnprocessableError("извлечение не удалось: "+result.Error, nil).
			WithContext("Ingest: " + filename)
	}
	return result, nil
}

// Get возвращает сохраненный документ.
func (s *DocumentService) Get(docID string) (*database.StoredDocument, error) {
	doc, err := s.store.GetDocument(docID)
	if errors.Is(err, database.ErrDocumentNotFound) {
		return nil, apperrors.NewNotFoundError("документ не найден", err).
			WithContext("GetDocument: " + docID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить документ", err).
			WithContext("GetDocument: " + docID)
	}
	return doc, nil
}

// List возвращает все сохраненные документы.
func (s *DocumentService) List() ([]database.StoredDocument, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить документы", err)
	}
	return docs, nil
}
