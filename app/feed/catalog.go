package feed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

// LoadCatalog reads the topic catalog at path, or the built-in catalog when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", cmpPath(path), err)
	}

	slog.Debug("Feed catalog loaded", "path", cmpPath(path), "topics", len(catalog.Topics), "default_topics", catalog.DefaultTopics)

	return catalog, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range catalog.Topics {
		group := &catalog.Topics[i]
		group.Name = strings.ToLower(strings.TrimSpace(group.Name))
		for j, alias := range group.Aliases {
			group.Aliases[j] = strings.ToLower(strings.TrimSpace(alias))
		}
	}
	for i, topic := range catalog.DefaultTopics {
		catalog.DefaultTopics[i] = strings.ToLower(strings.TrimSpace(topic))
	}

	if err := validateCatalog(&catalog); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Select returns the feeds of every group named by topics, in catalog
// order and without repeats. Unknown topics are ignored; an empty topic
// list selects the defaults.
func (c *Catalog) Select(topics []string, defaults []string) []FeedSource {
	want := make(map[string]bool)
	for _, topic := range topics {
		if topic = strings.ToLower(strings.TrimSpace(topic)); topic != "" {
			want[topic] = true
		}
	}
	if len(want) == 0 {
		if len(defaults) == 0 {
			defaults = c.DefaultTopics
		}
		for _, topic := range defaults {
			want[strings.ToLower(topic)] = true
		}
	}

	var feeds []FeedSource
	seen := make(map[string]bool)
	for _, group := range c.Topics {
		if !want[group.Name] && !slices.ContainsFunc(group.Aliases, func(alias string) bool { return want[alias] }) {
			continue
		}
		for _, f := range group.Feeds {
			if seen[f.URL] {
				continue
			}
			seen[f.URL] = true
			feeds = append(feeds, f)
		}
	}

	return feeds
}

func validateCatalog(catalog *Catalog) error {
	if len(catalog.Topics) == 0 {
		return fmt.Errorf("at least one topic group is required")
	}

	names := make(map[string]bool)
	for i, group := range catalog.Topics {
		if group.Name == "" {
			return fmt.Errorf("topic group at index %d has no name", i)
		}
		if names[group.Name] {
			return fmt.Errorf("duplicate topic group: %s", group.Name)
		}
		names[group.Name] = true

		for j, f := range group.Feeds {
			if f.URL == "" {
				return fmt.Errorf("feed %d of topic %s has no url", j, group.Name)
			}
			if f.Source == "" {
				return fmt.Errorf("feed %d of topic %s has no source", j, group.Name)
			}
		}
	}

	return nil
}

func cmpPath(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
