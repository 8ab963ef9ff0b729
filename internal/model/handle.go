package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feliperosa/trainvault/internal/training"
)

// Handle is the narrow capability surface the core needs from the shared
// NL-to-SQL model. Adapters for concrete model providers implement it
// explicitly; the core never probes for optional methods.
type Handle interface {
	// ListAll returns the model's current in-memory training set. An empty
	// model yields an empty slice, not an error.
	ListAll(ctx context.Context) ([]training.Record, error)

	// Add trains the model with one record. Question is only meaningful for
	// sql records.
	Add(ctx context.Context, recordType training.RecordType, content, question string) error

	// Remove deletes one record from the live model. Returns
	// training.ErrNotFound when the id is already gone.
	Remove(ctx context.Context, recordID string) error
}

// Config controls handle construction.
type Config struct {
	Mode    string
	HTTPURL string
	APIKey  string
}

// NewHandle selects an adapter: "http" talks to a remote model service,
// "memory" keeps the training set in-process, "auto" prefers http when a URL
// is configured.
func NewHandle(cfg Config) (Handle, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPHandle(cfg.HTTPURL, cfg.APIKey), nil
		}
		return NewInMemoryHandle(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("model HTTP url is required for http mode")
		}
		return NewHTTPHandle(cfg.HTTPURL, cfg.APIKey), nil
	case "memory":
		return NewInMemoryHandle(), nil
	default:
		return nil, fmt.Errorf("unsupported model handle mode %q", cfg.Mode)
	}
}
