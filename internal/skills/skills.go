// Package skills loads reusable prompt instructions from markdown files
// with YAML frontmatter. Domain services compose them into system prompts.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Skill is one loaded instruction file. Prompt is the markdown body after
// the frontmatter.
type Skill struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Priority    int               `yaml:"priority"`
	Metadata    map[string]string `yaml:"metadata"`
	Prompt      string            `yaml:"-"`
	Source      string            `yaml:"-"`
}

// Manager holds the loaded skill set. Loading replaces the whole set.
type Manager struct {
	mu     sync.RWMutex
	dirs   []string
	skills map[string]*Skill
}

// NewManager prepares a manager over a precedence-ordered directory list:
// later directories override earlier ones by skill name.
func NewManager(dirs ...string) *Manager {
	return &Manager{
		dirs:   dirs,
		skills: make(map[string]*Skill),
	}
}

// Load reads every *.md file from the configured directories. A missing
// directory is skipped; a malformed file fails the load.
func (m *Manager) Load() error {
	loaded := make(map[string]*Skill)
	for _, dir := range m.dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read skills dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read skill %s: %w", path, err)
			}
			skill, err := Parse(string(data))
			if err != nil {
				return fmt.Errorf("parse skill %s: %w", path, err)
			}
			skill.Source = path
			// Within one directory, higher priority wins; across
			// directories, the later directory always wins.
			if prev, ok := loaded[skill.Name]; ok &&
				filepath.Dir(prev.Source) == dir && prev.Priority >= skill.Priority {
				continue
			}
			loaded[skill.Name] = skill
		}
	}

	m.mu.Lock()
	m.skills = loaded
	m.mu.Unlock()
	return nil
}

// Parse splits frontmatter from body and decodes the YAML header.
func Parse(content string) (*Skill, error) {
	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return nil, fmt.Errorf("missing frontmatter")
	}
	header, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		// Frontmatter may close with --- at EOF.
		header, body, ok = strings.Cut(rest, "\n---")
		if !ok {
			return nil, fmt.Errorf("unterminated frontmatter")
		}
	}
	var skill Skill
	if err := yaml.Unmarshal([]byte(header), &skill); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	if skill.Name == "" {
		return nil, fmt.Errorf("frontmatter missing name")
	}
	skill.Prompt = strings.TrimSpace(body)
	return &skill, nil
}

// Get returns a skill by name.
func (m *Manager) Get(name string) (*Skill, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.skills[name]
	return s, ok
}

// Prompt returns just the instruction body, or "" when the skill is
// missing. Callers fall back to their own default prompt.
func (m *Manager) Prompt(name string) string {
	if s, ok := m.Get(name); ok {
		return s.Prompt
	}
	return ""
}

// All returns every loaded skill sorted by name.
func (m *Manager) All() []*Skill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Skill, 0, len(m.skills))
	for _, s := range m.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
