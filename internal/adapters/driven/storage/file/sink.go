package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// Ensure Sink implements the interfaces.
var (
	_ driven.DatasetWriter = (*Sink)(nil)
	_ driven.DatasetReader = (*Sink)(nil)
)

// Sink writes goldens to dataset files and reads them back.
type Sink struct {
	now func() time.Time
}

// NewSink creates a file sink.
func NewSink() *Sink {
	return &Sink{now: time.Now}
}

// Write stores goldens at path. An empty kind is inferred from the path
// extension. When path is a directory, or ends with a separator, the file is
// named goldens_<timestamp> with the kind's extension.
func (s *Sink) Write(ctx context.Context, goldens []domain.Golden, kind domain.DatasetKind, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", domain.NewInvalidConfigError("output", "path is empty")
	}

	target, err := s.resolve(path, kind)
	if err != nil {
		return "", err
	}
	if kind == "" {
		kind, _ = domain.DatasetKindFromPath(target)
	}

	data, err := encode(goldens, kind)
	if err != nil {
		return "", fmt.Errorf("encode %s dataset: %w", kind, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("write dataset: %w", err)
	}

	logger.Debug("dataset written", "path", target, "kind", kind, "goldens", len(goldens))
	return target, nil
}

// Read parses the dataset file at path. The kind is inferred from the extension.
func (s *Sink) Read(ctx context.Context, path string) ([]domain.Golden, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, ok := domain.DatasetKindFromPath(path)
	if !ok {
		return nil, domain.NewInvalidConfigError("format", fmt.Sprintf("cannot infer dataset kind from %q", filepath.Base(path)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	goldens, err := decode(data, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, filepath.Base(path), err)
	}
	return goldens, nil
}

// resolve picks the file to write and validates the kind against it.
func (s *Sink) resolve(path string, kind domain.DatasetKind) (string, error) {
	isDir := strings.HasSuffix(path, string(os.PathSeparator)) || strings.HasSuffix(path, "/")
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		isDir = true
	}

	if isDir {
		if kind == "" {
			kind = domain.DatasetJSON
		}
		if !kind.IsValid() {
			return "", unknownKind(kind)
		}
		name := "goldens_" + s.now().UTC().Format("20060102T150405") + kind.Extension()
		return filepath.Join(path, name), nil
	}

	if kind == "" {
		inferred, ok := domain.DatasetKindFromPath(path)
		if !ok {
			return "", domain.NewInvalidConfigError("format", fmt.Sprintf("cannot infer dataset kind from %q", filepath.Base(path)))
		}
		kind = inferred
	}
	if !kind.IsValid() {
		return "", unknownKind(kind)
	}
	return path, nil
}

func unknownKind(kind domain.DatasetKind) error {
	return domain.NewInvalidConfigError("format", fmt.Sprintf("unknown dataset kind %q", kind))
}

func encode(goldens []domain.Golden, kind domain.DatasetKind) ([]byte, error) {
	var buf bytes.Buffer
	switch kind {
	case domain.DatasetJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(toRecords(goldens)); err != nil {
			return nil, err
		}
	case domain.DatasetCSV:
		if err := encodeCSV(&buf, goldens); err != nil {
			return nil, err
		}
	case domain.DatasetYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(toRecords(goldens)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, unknownKind(kind)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, kind domain.DatasetKind) ([]domain.Golden, error) {
	var records []record
	switch kind {
	case domain.DatasetJSON:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	case domain.DatasetCSV:
		return decodeCSV(bytes.NewReader(data))
	case domain.DatasetYAML:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	default:
		return nil, unknownKind(kind)
	}
	return fromRecords(records), nil
}
