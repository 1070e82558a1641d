package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joeblew999/plat-map/internal/style"
)

var (
	// ErrLayerNotFound is returned for an unknown layer ID.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrLayerExists is returned when creating a layer under a taken ID.
	ErrLayerExists = errors.New("layer already exists")
	// ErrInvalidLayer is returned for a layer config that cannot be used.
	ErrInvalidLayer = errors.New("invalid layer")
)

// LayerService manages layer configurations persisted in layers.json.
type LayerService struct {
	dataDir string
	bus     *EventBus
	layers  map[string]LayerConfig
	mu      sync.RWMutex
}

// NewLayerService creates a new layer service. Mutations are published on
// bus when it is non-nil.
func NewLayerService(dataDir string, bus *EventBus) *LayerService {
	s := &LayerService{
		dataDir: dataDir,
		bus:     bus,
		layers:  make(map[string]LayerConfig),
	}
	s.loadFromDisk()
	return s
}

// List returns all layer configurations.
func (s *LayerService) List() map[string]LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]LayerConfig, len(s.layers))
	for k, v := range s.layers {
		result[k] = v
	}
	return result
}

// Ordered returns all layer configurations sorted by draw order, then ID.
func (s *LayerService) Ordered() []LayerConfig {
	list := s.List()
	out := make([]LayerConfig, 0, len(list))
	for _, l := range list {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (LayerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	return layer, ok
}

// Create adds a new layer configuration.
func (s *LayerService) Create(layer LayerConfig) (LayerConfig, error) {
	if err := validateLayer(layer); err != nil {
		return LayerConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if layer.ID == "" {
		layer.ID = generateID(layer.Name)
	}
	if layer.ID == "" {
		return LayerConfig{}, fmt.Errorf("%w: name %q yields an empty ID", ErrInvalidLayer, layer.Name)
	}

	if _, exists := s.layers[layer.ID]; exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerExists, layer.ID)
	}

	s.layers[layer.ID] = layer
	if err := s.saveToDisk(); err != nil {
		delete(s.layers, layer.ID)
		return LayerConfig{}, err
	}

	s.publish("created", layer.ID)
	return layer, nil
}

// Update replaces a layer configuration by ID.
func (s *LayerService) Update(id string, layer LayerConfig) (LayerConfig, error) {
	if err := validateLayer(layer); err != nil {
		return LayerConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	layer.ID = id
	s.layers[id] = layer
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return LayerConfig{}, err
	}

	s.publish("updated", id)
	return layer, nil
}

// PatchStyles merges spec into the stored styles of a layer. Fields left
// empty in spec keep their stored value.
func (s *LayerService) PatchStyles(id string, spec style.LayerSpec) (LayerConfig, error) {
	if err := spec.Validate(); err != nil {
		return LayerConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	layer, exists := s.layers[id]
	if !exists {
		return LayerConfig{}, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	prev := layer
	layer.Styles = layer.Styles.Merge(spec)
	s.layers[id] = layer
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return LayerConfig{}, err
	}

	s.publish("updated", id)
	return layer, nil
}

// Delete removes a layer by ID.
func (s *LayerService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.layers[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}

	delete(s.layers, id)
	if err := s.saveToDisk(); err != nil {
		s.layers[id] = prev
		return err
	}

	s.publish("deleted", id)
	return nil
}

func (s *LayerService) publish(action, id string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: "layers", Action: action, ID: id})
	}
}

func validateLayer(layer LayerConfig) error {
	if strings.TrimSpace(layer.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidLayer)
	}
	if layer.Distance < 0 {
		return fmt.Errorf("%w: negative cluster distance", ErrInvalidLayer)
	}
	if layer.Source != "" {
		if err := validateName(layer.Source); err != nil {
			return fmt.Errorf("%w: source: %v", ErrInvalidLayer, err)
		}
	}
	return layer.Styles.Validate()
}

// configFile returns the path to the layers config file.
func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, "layers.json")
}

// loadFromDisk loads layer configurations from disk.
func (s *LayerService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var layers map[string]LayerConfig
	if err := json.Unmarshal(data, &layers); err != nil {
		slog.Warn("ignoring unreadable layer config", "path", s.configFile(), "error", err)
		return
	}

	s.layers = layers
}

// saveToDisk persists layer configurations to disk.
func (s *LayerService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.layers, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, id)
}
