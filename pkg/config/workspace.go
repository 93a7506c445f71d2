// Package config loads the workspace declaration and the runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/guildsync/pkg/naming"
)

// ErrInvalid is returned when a workspace declaration does not validate
var ErrInvalid = errors.New("invalid workspace declaration")

// Workspace is the declared structure of one guild
type Workspace struct {
	GuildID      string       `yaml:"guild_id" toml:"guild_id"`
	Courses      Courses      `yaml:"courses" toml:"courses"`
	Clubs        []string     `yaml:"clubs" toml:"clubs"`
	Verification Verification `yaml:"verification" toml:"verification"`
}

// Courses declares the course catalog
type Courses struct {
	// Voice adds a voice channel next to every course text channel
	Voice   bool     `yaml:"voice" toml:"voice"`
	Catalog []Course `yaml:"catalog" toml:"catalog"`
}

// Course is one catalog entry. It may be written as a bare number or as an
// object with a title.
type Course struct {
	Number string `yaml:"number" toml:"number"`
	Title  string `yaml:"title" toml:"title"`
}

// Verification declares the verification gate
type Verification struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// UnmarshalYAML accepts both `3500` and `{number: 3500, title: ...}`
func (c *Course) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Number = node.Value
		return nil
	}
	type plain Course
	return node.Decode((*plain)(c))
}

// UnmarshalTOML accepts both `3500`, `"cs3500"` and `{number = "3500", title = "..."}`
func (c *Course) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		c.Number = t
	case int64:
		c.Number = fmt.Sprint(t)
	case map[string]any:
		if n, ok := t["number"]; ok {
			c.Number = fmt.Sprint(n)
		}
		if title, ok := t["title"].(string); ok {
			c.Title = title
		}
	default:
		return fmt.Errorf("unsupported course entry %v", v)
	}
	return nil
}

// Load reads a workspace declaration. The format follows the file extension:
// .toml for TOML, anything else is parsed as YAML.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace file: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return Parse(data, format)
}

// Parse decodes and validates a declaration in the given format ("yaml" or "toml")
func Parse(data []byte, format string) (*Workspace, error) {
	ws := &Workspace{}
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), ws); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, ws); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported workspace format %q", format)
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Validate checks the declaration and normalizes course numbers in place
func (w *Workspace) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(w.Courses.Catalog))
	for i := range w.Courses.Catalog {
		c := &w.Courses.Catalog[i]
		n, err := naming.ParseCourseNumber(c.Number)
		if err != nil {
			errs = append(errs, fmt.Errorf("courses.catalog[%d]: %w", i, err))
			continue
		}
		if seen[n] {
			errs = append(errs, fmt.Errorf("courses.catalog[%d]: duplicate course %s", i, n))
			continue
		}
		seen[n] = true
		c.Number = n
		c.Title = strings.TrimSpace(c.Title)
	}

	slugs := make(map[string]bool, len(w.Clubs))
	for i, name := range w.Clubs {
		slug, err := naming.ClubSlug(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("clubs[%d]: %w", i, err))
			continue
		}
		if slugs[slug] {
			errs = append(errs, fmt.Errorf("clubs[%d]: duplicate club %s", i, slug))
			continue
		}
		slugs[slug] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// CourseNumbers returns the normalized course numbers in declaration order
func (w *Workspace) CourseNumbers() []string {
	out := make([]string, 0, len(w.Courses.Catalog))
	for _, c := range w.Courses.Catalog {
		out = append(out, c.Number)
	}
	return out
}

// CourseTitles maps course numbers to their declared titles
func (w *Workspace) CourseTitles() map[string]string {
	out := make(map[string]string)
	for _, c := range w.Courses.Catalog {
		if c.Title != "" {
			out[c.Number] = c.Title
		}
	}
	return out
}

// ClubSlugs returns the club slugs in declaration order. Call after Validate.
func (w *Workspace) ClubSlugs() []string {
	out := make([]string, 0, len(w.Clubs))
	for _, name := range w.Clubs {
		if slug, err := naming.ClubSlug(name); err == nil {
			out = append(out, slug)
		}
	}
	return out
}
