package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"takeoff-api/internal/analysis/client"
)

// ============================================================
// Analyze Handler
// ============================================================

// AnalyzeHandler — фасад внешнего AI endpoint: принимает документ
// и страницы, пересылает наверх и переводит сигналы upstream
// в структурные статусы.
type AnalyzeHandler struct {
	aiEndpoint string
	apiKey     string
}

func NewAnalyzeHandler(aiEndpoint, apiKey string) *AnalyzeHandler {
	return &AnalyzeHandler{aiEndpoint: aiEndpoint, apiKey: apiKey}
}

// Analyze принимает multipart: поле document_id и файлы pages.
func (h *AnalyzeHandler) Analyze(c fiber.Ctx) error {
	log.Printf("[ANALYSIS] Received request")
	log.Printf("[ANALYSIS] Content-Type: %s", c.Get("Content-Type"))

	form, err := c.MultipartForm()
	if err != nil {
		log.Printf("[ANALYSIS] multipart error: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "multipart form required"})
	}

	documentID := formValue(form, "document_id")
	if documentID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "document_id required"})
	}
	pages := form.File["pages"]
	if len(pages) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "at least one page image required"})
	}

	log.Printf("[ANALYSIS] Document %s, %d pages", documentID, len(pages))

	if h.aiEndpoint == "" {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "ai endpoint is not configured"})
	}

	status, payload, err := h.forward(c, documentID, pages)
	if err != nil {
		log.Printf("[ANALYSIS] upstream error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "ai endpoint failed"})
	}

	if status != client.StatusComplete {
		return c.JSON(client.Result{Status: status})
	}
	return c.JSON(client.Result{Status: client.StatusComplete, Payload: payload})
}

// forward пересылает страницы во внешний endpoint и переводит его
// ответ: 413 — документ слишком большой, нужен batch-канал;
// 202 — анализ поставлен в очередь.
func (h *AnalyzeHandler) forward(c fiber.Ctx, documentID string, pages []*multipart.FileHeader) (string, json.RawMessage, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("document_id", documentID); err != nil {
		return "", nil, err
	}
	for _, fileHeader := range pages {
		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("[ANALYSIS] open page %s: %v", fileHeader.Filename, err)
			continue
		}
		part, err := writer.CreateFormFile("pages", fileHeader.Filename)
		if err != nil {
			file.Close()
			return "", nil, err
		}
		io.Copy(part, file)
		file.Close()
	}
	writer.Close()

	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, h.aiEndpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return client.StatusBatchRequired, nil, nil
	case resp.StatusCode == http.StatusAccepted:
		return client.StatusQueued, nil, nil
	case resp.StatusCode >= 300:
		return "", nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	if !json.Valid(data) {
		return "", nil, fmt.Errorf("upstream returned invalid json")
	}
	return client.StatusComplete, data, nil
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
