package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/logging"
)

const (
	// BuiltinDeck is the deck compiled into the binary.
	BuiltinDeck = "classic"
	// ProfilesFile holds the agent temperament profiles inside the config
	// directory.
	ProfilesFile = "agents.yaml"
	decksDir     = "decks"
)

// profilesDocument is the layout of agents.yaml. Fields a profile leaves out
// keep the balanced defaults.
type profilesDocument struct {
	Default  string      `yaml:"default"`
	Profiles []yaml.Node `yaml:"profiles"`
}

// Manager handles deck and agent profile loading and caching
type Manager struct {
	configDir      string
	defaultDeck    string
	defaultProfile string
	decks          map[string]*engine.Deck
	profiles       map[string]agent.Temperament
	profileOrder   []string
	logger         *slog.Logger
	mu             sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configDir serves
// only the built-in deck and the default profile.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir:   configDir,
		defaultDeck: BuiltinDeck,
		decks:       make(map[string]*engine.Deck),
		logger:      logging.New("config"),
	}
	if err := m.loadProfiles(); err != nil {
		return nil, fmt.Errorf("failed to load agent profiles: %w", err)
	}
	return m, nil
}

// LoadDeck loads a deck by name
func (m *Manager) LoadDeck(name string) (*engine.Deck, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	deck, exists := m.decks[name]
	m.mu.RUnlock()
	if exists {
		return deck.Clone(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if deck, exists := m.decks[name]; exists {
		return deck.Clone(), nil
	}

	deck, err := m.readDeck(name)
	if err != nil {
		return nil, err
	}
	m.decks[name] = deck
	return deck.Clone(), nil
}

func (m *Manager) readDeck(name string) (*engine.Deck, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", service.ErrDeckNotFound, name)
	}
	if m.configDir != "" {
		deck, err := engine.LoadDeck(m.deckPath(name))
		switch {
		case err == nil:
			return deck, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidDeck, err)
		}
	}
	if name == BuiltinDeck {
		return engine.ClassicDeck(), nil
	}
	return nil, fmt.Errorf("%w: %q", service.ErrDeckNotFound, name)
}

// ListDecks returns information about every loadable deck. Invalid deck
// files are skipped with a warning.
func (m *Manager) ListDecks() ([]*service.DeckInfo, error) {
	var decks []*service.DeckInfo
	seen := map[string]bool{}

	if m.configDir != "" {
		entries, err := os.ReadDir(filepath.Join(m.configDir, decksDir))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read deck directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".json")
			deck, err := m.LoadDeck(name)
			if err != nil {
				m.logger.Warn("skipping invalid deck", "file", entry.Name(), "error", err)
				continue
			}
			seen[name] = true
			decks = append(decks, deckInfo(entry.Name(), name, deck, false))
		}
	}

	if !seen[BuiltinDeck] {
		decks = append(decks, deckInfo("", BuiltinDeck, engine.ClassicDeck(), true))
	}

	sort.Slice(decks, func(i, j int) bool { return decks[i].DeckID < decks[j].DeckID })
	return decks, nil
}

func deckInfo(filename, id string, deck *engine.Deck, builtIn bool) *service.DeckInfo {
	return &service.DeckInfo{
		Filename:     filename,
		DeckID:       id,
		Name:         deck.Name,
		Description:  deck.Description,
		BoardCards:   deck.BoardCards,
		Cards:        len(deck.Cards),
		TimerSeconds: deck.TimerSeconds,
		BuiltIn:      builtIn,
	}
}

// DefaultDeck returns the id of the deck used when none is requested
func (m *Manager) DefaultDeck() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultDeck
}

// SetDefault sets the default deck by name
func (m *Manager) SetDefault(name string) error {
	if _, err := m.LoadDeck(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultDeck = strings.TrimSuffix(name, ".json")
	return nil
}

// SaveDeck validates raw deck JSON and writes it to the deck directory
func (m *Manager) SaveDeck(name string, data []byte) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory to save deck %q into", name)
	}
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid deck name %q", name)
	}

	deck, err := engine.ParseDeck(data)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidDeck, err)
	}

	if err := os.MkdirAll(filepath.Join(m.configDir, decksDir), 0o755); err != nil {
		return fmt.Errorf("failed to create deck directory: %w", err)
	}
	if err := os.WriteFile(m.deckPath(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write deck file: %w", err)
	}

	m.mu.Lock()
	m.decks[name] = deck
	m.mu.Unlock()
	return nil
}

// Profile returns the temperament profile with the given name. An empty
// name selects the default profile.
func (m *Manager) Profile(name string) (agent.Temperament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultProfile
	}
	temp, exists := m.profiles[name]
	if !exists {
		return agent.Temperament{}, fmt.Errorf("%w: %q", service.ErrProfileNotFound, name)
	}
	return temp, nil
}

// Profiles returns every profile, the default one first
func (m *Manager) Profiles() []agent.Temperament {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []agent.Temperament{m.profiles[m.defaultProfile]}
	for _, name := range m.profileOrder {
		if name != m.defaultProfile {
			out = append(out, m.profiles[name])
		}
	}
	return out
}

// RefreshCache drops cached decks and reloads the agent profiles
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.decks = make(map[string]*engine.Deck)
	m.mu.Unlock()
	return m.loadProfiles()
}

// loadProfiles reads agents.yaml. A missing file leaves only the balanced
// default.
func (m *Manager) loadProfiles() error {
	balanced := agent.DefaultTemperament()
	profiles := map[string]agent.Temperament{balanced.Name: balanced}
	order := []string{balanced.Name}
	defaultProfile := balanced.Name

	if m.configDir != "" {
		data, err := os.ReadFile(filepath.Join(m.configDir, ProfilesFile))
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return fmt.Errorf("failed to read %s: %w", ProfilesFile, err)
		default:
			var doc profilesDocument
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse %s: %w", ProfilesFile, err)
			}
			for i := range doc.Profiles {
				temp := agent.DefaultTemperament()
				temp.Name = ""
				if err := doc.Profiles[i].Decode(&temp); err != nil {
					return fmt.Errorf("profile %d: %w", i+1, err)
				}
				if temp.Name == "" {
					return fmt.Errorf("profile %d has no name", i+1)
				}
				if err := temp.Validate(); err != nil {
					return err
				}
				if _, dup := profiles[temp.Name]; !dup {
					order = append(order, temp.Name)
				}
				profiles[temp.Name] = temp
			}
			if doc.Default != "" {
				if _, exists := profiles[doc.Default]; !exists {
					return fmt.Errorf("default profile %q is not defined", doc.Default)
				}
				defaultProfile = doc.Default
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = profiles
	m.profileOrder = order
	m.defaultProfile = defaultProfile
	return nil
}

func (m *Manager) deckPath(name string) string {
	return filepath.Join(m.configDir, decksDir, name+".json")
}
