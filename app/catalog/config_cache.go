package catalog

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Group is one configured asset category: a priority tier plus the locators
// seeded into tracking under it. The category name comes from the filename.
type Group struct {
	Category string   `yaml:"-"`
	Priority string   `yaml:"priority"`
	Locators []string `yaml:"locators"`
}

// ConfigCache loads and caches asset group configurations from a directory
// of YAML files, one file per category.
type ConfigCache struct {
	assetsDir string
	cache     map[string]*Group
	mu        sync.RWMutex
}

func NewConfigCache(assetsDir string) *ConfigCache {
	return &ConfigCache{
		assetsDir: assetsDir,
		cache:     make(map[string]*Group),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.assetsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.assetsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		category := fileName[:len(fileName)-4] // Remove .yml extension

		group, err := cc.LoadGroup(category)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Asset group loaded", "category", category,
			"priority", group.Priority, "locators", len(group.Locators))
	}

	return nil
}

func (cc *ConfigCache) LoadGroup(category string) (*Group, error) {
	configFile := filepath.Join(cc.assetsDir, category+".yml")

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var group Group
	if err := yaml.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	group.Category = category
	if group.Priority == "" {
		group.Priority = string(TierMedium)
	}

	if err := cc.validateGroup(&group); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[category] = &group

	return &group, nil
}

func (cc *ConfigCache) GetGroup(category string) (*Group, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	group, ok := cc.cache[category]
	if !ok {
		return nil, fmt.Errorf("asset group with category '%s' not found", category)
	}
	return group, nil
}

func (cc *ConfigCache) GetGroups() map[string]*Group {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	groupsCopy := make(map[string]*Group, len(cc.cache))
	for k, v := range cc.cache {
		groupsCopy[k] = v
	}
	return groupsCopy
}

func (cc *ConfigCache) GetGroupCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// GetDomains returns the set of hosts appearing in configured locators.
// Discovery restricts candidate extraction to these domains.
func (cc *ConfigCache) GetDomains() []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	seen := make(map[string]bool)
	var domains []string
	for _, group := range cc.cache {
		for _, locator := range group.Locators {
			parsed, err := url.Parse(locator)
			if err != nil || parsed.Host == "" {
				continue
			}
			if !seen[parsed.Host] {
				seen[parsed.Host] = true
				domains = append(domains, parsed.Host)
			}
		}
	}
	return domains
}

func (cc *ConfigCache) validateGroup(group *Group) error {
	if ParseTier(group.Priority) != Tier(group.Priority) {
		return fmt.Errorf("invalid priority: %s", group.Priority)
	}

	if len(group.Locators) == 0 {
		return fmt.Errorf("at least one locator is required")
	}

	for i, locator := range group.Locators {
		parsed, err := url.Parse(locator)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid locator at index %d: %s", i, locator)
		}
	}

	return nil
}
