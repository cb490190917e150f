// Package output writes saved measurements to disk as standalone JSON files.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"rheumactive/internal/microservices/http-api/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RawLogWriter struct {
	mu  sync.Mutex
	dir string
}

func NewRawLogWriter(outputDir string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &RawLogWriter{dir: outputDir}, nil
}

// Record writes m to <dir>/<timestamp>_<joint>_<id>.json and returns the path.
// The file is written under a temp name and renamed so readers never see a partial file.
func (r *RawLogWriter) Record(m *models.Measurement) (string, error) {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%s.json",
		m.Timestamp.UTC().Format("20060102_150405"),
		sanitize(m.Joint),
		m.ID,
	)
	path := filepath.Join(r.dir, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".measurement-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// Dir is the directory measurements are written to.
func (r *RawLogWriter) Dir() string {
	return r.dir
}

// sanitize keeps file names portable, joint names come from request bodies
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
