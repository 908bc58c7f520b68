package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ============================================================
// Analysis Client
// ============================================================

// Статусы ответа analysis-сервиса.
const (
	StatusComplete      = "complete"
	StatusQueued        = "queued"
	StatusBatchRequired = "batch_required"
)

// PageImage — отрендеренная страница плана.
type PageImage struct {
	Name string
	Data []byte
}

// Result — ответ analysis-сервиса. Payload присутствует только при
// StatusComplete и не интерпретируется дальше извлечения списка строк.
type Result struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client ходит в analysis-сервис по HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

// Analyze отправляет документ и страницы на анализ.
func (c *Client) Analyze(ctx context.Context, documentID string, pages []PageImage) (Result, error) {
	if c.baseURL == "" {
		return Result{}, fmt.Errorf("analysis url is empty")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("document_id", documentID); err != nil {
		return Result{}, err
	}
	for _, page := range pages {
		part, err := writer.CreateFormFile("pages", page.Name)
		if err != nil {
			return Result{}, err
		}
		if _, err := part.Write(page.Data); err != nil {
			return Result{}, err
		}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body.Bytes()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("analysis status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("decode analysis response: %w", err)
	}
	return result, nil
}
