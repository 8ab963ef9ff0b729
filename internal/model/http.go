package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feliperosa/trainvault/internal/training"
)

// HTTPHandle adapts a remote model service exposing list/train/remove
// endpoints over JSON.
type HTTPHandle struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPHandle(baseURL, apiKey string) *HTTPHandle {
	return &HTTPHandle{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type wireRecord struct {
	ID       string `json:"id"`
	Type     string `json:"training_data_type"`
	Content  string `json:"content"`
	Question string `json:"question,omitempty"`
}

func (h *HTTPHandle) ListAll(ctx context.Context) ([]training.Record, error) {
	var payload struct {
		TrainingData []wireRecord `json:"training_data"`
	}
	if err := h.do(ctx, http.MethodGet, "/v1/training-data", nil, &payload); err != nil {
		return nil, err
	}

	out := make([]training.Record, 0, len(payload.TrainingData))
	for _, w := range payload.TrainingData {
		id := w.ID
		if strings.TrimSpace(id) == "" {
			// Some model services return unkeyed records; they still need a
			// stable id to be persisted and diffed.
			id = uuid.NewString()
		}
		out = append(out, training.Record{
			RecordID: id,
			Type:     training.ParseRecordType(w.Type),
			Content:  w.Content,
			Question: w.Question,
		})
	}
	return out, nil
}

func (h *HTTPHandle) Add(ctx context.Context, recordType training.RecordType, content, question string) error {
	body := wireRecord{
		Type:     string(recordType),
		Content:  content,
		Question: question,
	}
	return h.do(ctx, http.MethodPost, "/v1/training-data", body, nil)
}

func (h *HTTPHandle) Remove(ctx context.Context, recordID string) error {
	err := h.do(ctx, http.MethodDelete, "/v1/training-data/"+recordID, nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		return fmt.Errorf("record %s: %w", recordID, training.ErrNotFound)
	}
	return err
}

func (h *HTTPHandle) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("model http status %d: %s", res.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
