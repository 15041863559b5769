package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joeblew999/plat-carto/internal/config"
)

// MapService stores map documents in maps.json under the data directory.
type MapService struct {
	dataDir string
	maps    map[string]config.MapSpec
	bus     *EventBus
	mu      sync.RWMutex
}

// NewMapService creates a map service and loads stored maps. bus may be nil.
func NewMapService(dataDir string, bus *EventBus) *MapService {
	s := &MapService{
		dataDir: dataDir,
		maps:    make(map[string]config.MapSpec),
		bus:     bus,
	}
	s.loadFromDisk()
	return s
}

// List returns all maps ordered by ID.
func (s *MapService) List() []config.MapSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]config.MapSpec, 0, len(s.maps))
	for _, m := range s.maps {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns a map by ID.
func (s *MapService) Get(id string) (config.MapSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maps[id]
	return m, ok
}

// Create validates and stores a new map. The ID is derived from the name
// when empty.
func (s *MapService) Create(m config.MapSpec) (config.MapSpec, error) {
	if err := m.Validate(); err != nil {
		return config.MapSpec{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = generateID(m.Name)
	}
	if m.ID == "" {
		return config.MapSpec{}, fmt.Errorf("%w: map needs an id or a name", config.ErrInvalid)
	}
	if _, exists := s.maps[m.ID]; exists {
		return config.MapSpec{}, fmt.Errorf("map %q: %w", m.ID, ErrExists)
	}

	s.maps[m.ID] = m
	if err := s.saveToDisk(); err != nil {
		delete(s.maps, m.ID)
		return config.MapSpec{}, err
	}
	s.bus.Publish(Event{Resource: "maps", Action: "created", ID: m.ID})
	return m, nil
}

// Update replaces a map by ID.
func (s *MapService) Update(id string, m config.MapSpec) (config.MapSpec, error) {
	if err := m.Validate(); err != nil {
		return config.MapSpec{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.maps[id]
	if !exists {
		return config.MapSpec{}, fmt.Errorf("map %q: %w", id, ErrNotFound)
	}

	m.ID = id
	s.maps[id] = m
	if err := s.saveToDisk(); err != nil {
		s.maps[id] = prev
		return config.MapSpec{}, err
	}
	s.bus.Publish(Event{Resource: "maps", Action: "updated", ID: id})
	return m, nil
}

// Delete removes a map by ID.
func (s *MapService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.maps[id]
	if !exists {
		return fmt.Errorf("map %q: %w", id, ErrNotFound)
	}

	delete(s.maps, id)
	if err := s.saveToDisk(); err != nil {
		s.maps[id] = prev
		return err
	}
	s.bus.Publish(Event{Resource: "maps", Action: "deleted", ID: id})
	return nil
}

func (s *MapService) configFile() string {
	return filepath.Join(s.dataDir, "maps.json")
}

func (s *MapService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // no maps stored yet
	}

	var maps map[string]config.MapSpec
	if err := json.Unmarshal(data, &maps); err != nil {
		log.Printf("op=maps.load file=%s err=%v", s.configFile(), err)
		return
	}
	if maps != nil {
		s.maps = maps
	}
}

func (s *MapService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.maps, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
