package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"invoiceaudit/invoice"
)

// Client клиент AI-извлечения структуры счета из файла (PDF, PNG, JPG).
// Извлечение — внешний коллаборатор: клиент отвечает только за запрос,
// разбор ответа и деградацию при невалидной структуре. Запросы проходят
// через rate limiter, чтобы пакетная загрузка не упиралась в лимиты API.
type Client struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient создает клиент извлечения. rps ограничивает частоту
// запросов к API (0 — без ограничения).
func NewClient(apiKey, model string, rps float64) *Client {
	if model == "" {
		model = openai.GPT4o
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		api:     openai.NewClient(apiKey),
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.Default().With("component", "extraction"),
	}
}

// ExtractFile извлекает структуру счета из файла. Возвращает запись
// и сырой текст ответа модели (сохраняется дословно для аудита).
// Невалидный JSON в ответе — отказ извлечения для этого документа,
// пакет при этом продолжается (решает вызывающая сторона).
func (c *Client) ExtractFile(ctx context.Context, path string) (invoice.InvoiceRecord, string, error) {
	images, err := loadImages(path)
	if err != nil {
		return invoice.InvoiceRecord{}, "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return invoice.InvoiceRecord{}, "", err
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: buildExtractionPrompt()},
	}
	for _, content := range images {
		encoded := base64.StdEncoding.EncodeToString(content)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(content), encoded),
			},
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return invoice.InvoiceRecord{}, "", fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return invoice.InvoiceRecord{}, "", fmt.Errorf("extraction returned no choices")
	}

	rawText := resp.Choices[0].Message.Content
	rec, err := ParseRecord(rawText)
	if err != nil {
		return invoice.InvoiceRecord{}, rawText, fmt.Errorf("extraction response is not a valid record: %w", err)
	}

	c.logger.Info("document extracted",
		"file", filepath.Base(path),
		"supplier", rec.Supplier,
		"invoice_number", rec.InvoiceNumber,
		"lines", len(rec.Lines))
	return rec, rawText, nil
}

// wireRecord структура ответа экстрактора. Все числовые поля строк
// текстовые: локаль и формат чисел разбирает нормализатор.
type wireRecord struct {
	Supplier      string     `json:"supplier"`
	Date          string     `json:"date"`
	InvoiceNumber string     `json:"invoice_number"`
	OrderRef      string     `json:"order_ref"`
	Address       string     `json:"address"`
	TaxID         string     `json:"tax_id"`
	BankID        string     `json:"bank_id"`
	Lines         []wireLine `json:"lines"`
}

type wireLine struct {
	Quantity        json.RawMessage `json:"quantity"`
	Article         string          `json:"article"`
	Designation     string          `json:"designation"`
	GrossUnitPrice  json.RawMessage `json:"gross_unit_price"`
	Discount        json.RawMessage `json:"discount"`
	NetUnitPrice    json.RawMessage `json:"net_unit_price"`
	Divisor         int             `json:"divisor"`
	Amount          json.RawMessage `json:"amount"`
	DeliveryNoteRef string          `json:"delivery_note_ref"`
}

// ParseRecord разбирает JSON-ответ экстрактора в запись счета.
// Модель отдает числа то строками, то числами — оба варианта принимаются.
func ParseRecord(rawText string) (invoice.InvoiceRecord, error) {
	var wire wireRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(rawText)), &wire); err != nil {
		return invoice.InvoiceRecord{}, err
	}

	rec := invoice.InvoiceRecord{
		Supplier:      strings.TrimSpace(wire.Supplier),
		Date:          strings.TrimSpace(wire.Date),
		InvoiceNumber: strings.TrimSpace(wire.InvoiceNumber),
		OrderRef:      strings.TrimSpace(wire.OrderRef),
		Address:       wire.Address,
		TaxID:         wire.TaxID,
		BankID:        wire.BankID,
	}
	for _, wl := range wire.Lines {
		rec.Lines = append(rec.Lines, invoice.RawLine{
			Quantity:        rawToString(wl.Quantity),
			Article:         strings.TrimSpace(wl.Article),
			Designation:     wl.Designation,
			GrossUnitPrice:  rawToString(wl.GrossUnitPrice),
			Discount:        rawToString(wl.Discount),
			NetUnitPrice:    rawToString(wl.NetUnitPrice),
			Divisor:         wl.Divisor,
			Amount:          rawToString(wl.Amount),
			DeliveryNoteRef: strings.TrimSpace(wl.DeliveryNoteRef),
		})
	}
	return rec, nil
}

// rawToString приводит JSON-значение (строка, число, null) к тексту.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}

// buildExtractionPrompt промпт детального разбора счета.
func buildExtractionPrompt() string {
	return `You are an expert accountant. The following images are pages of a SINGLE supplier invoice.
Extract the data into one JSON object with this exact shape:

{
  "supplier": "supplier company name as printed",
  "date": "invoice date as YYYY-MM-DD",
  "invoice_number": "invoice number",
  "order_ref": "customer order reference, empty string if absent",
  "address": "supplier postal address",
  "tax_id": "VAT / tax identifier",
  "bank_id": "IBAN or bank identifier",
  "lines": [
    {
      "quantity": "quantity exactly as printed",
      "article": "article code, empty string if absent",
      "designation": "line description",
      "gross_unit_price": "gross unit price as printed (keep locale formatting)",
      "discount": "discount as printed, chains like 60+10 kept verbatim",
      "net_unit_price": "net unit price as printed",
      "divisor": 0,
      "amount": "line total as printed",
      "delivery_note_ref": "delivery note reference, empty if absent"
    }
  ]
}

Rules:
1. Keep every numeric field as the EXACT text printed on the invoice, including
   commas, spaces and currency symbols. Do not convert or reformat numbers.
2. "divisor" is an integer: N when the unit price is explicitly quoted per N units
   (e.g. "le cent" / "per 100"), otherwise 0.
3. Include every line of the invoice: products, fees, shipping, taxes, packaging.
4. Use empty strings for absent text fields, never null.
5. Respond ONLY with the single JSON object.`
}

// loadImages возвращает изображения страниц файла.
func loadImages(path string) ([][]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return convertPDFToImages(path)
	case ".png", ".jpg", ".jpeg":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		return [][]byte{content}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}
