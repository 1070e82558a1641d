package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/yourmap"
)

// ErrSourceNotFound is returned for a missing source file.
var ErrSourceNotFound = errors.New("source file not found")

// SourceService manages GeoJSON source data files.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// Supported source file extensions and their types
var extToType = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		fileType, ok := extToType[ext]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}

	return files, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// validateName rejects path traversal and unsupported extensions.
func validateName(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename required")
	}
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid filename")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := extToType[ext]; !ok {
		return fmt.Errorf("unsupported file type: %s", ext)
	}
	return nil
}

// Load parses a source file as a GeoJSON FeatureCollection.
func (s *SourceService) Load(filename string) (*geojson.FeatureCollection, error) {
	if err := validateName(filename); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.sourcesDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, filename)
		}
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return fc, nil
}

// Save writes a source file, replacing any existing one. The content must
// be a GeoJSON FeatureCollection.
func (s *SourceService) Save(filename string, r io.Reader) error {
	if err := validateName(filename); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if _, err := geojson.UnmarshalFeatureCollection(data); err != nil {
		return fmt.Errorf("not a GeoJSON FeatureCollection: %w", err)
	}
	return s.write(filename, data)
}

// Delete removes a source file.
func (s *SourceService) Delete(filename string) error {
	if err := validateName(filename); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.sourcesDir, filename)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, filename)
		}
		return err
	}
	return nil
}

// Generate writes count random demo points to filename.
func (s *SourceService) Generate(filename string, count int) (*geojson.FeatureCollection, error) {
	if err := validateName(filename); err != nil {
		return nil, err
	}
	fc := yourmap.GenerateGeoJSON(count, nil)
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if err := s.write(filename, data); err != nil {
		return nil, err
	}
	return fc, nil
}

func (s *SourceService) write(filename string, data []byte) error {
	if err := os.MkdirAll(s.sourcesDir, 0755); err != nil {
		return fmt.Errorf("failed to create sources directory: %w", err)
	}
	return os.WriteFile(filepath.Join(s.sourcesDir, filename), data, 0644)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
