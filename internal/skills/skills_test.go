package skills

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSkill = `---
name: chat-assistant
description: Conversational project assistant
priority: 10
metadata:
  lang: ru
---
Ты ассистент прораба. Отвечай кратко.
`

func TestParse(t *testing.T) {
	s, err := Parse(sampleSkill)
	require.NoError(t, err)
	assert.Equal(t, "chat-assistant", s.Name)
	assert.Equal(t, "Conversational project assistant", s.Description)
	assert.Equal(t, 10, s.Priority)
	assert.Equal(t, "ru", s.Metadata["lang"])
	assert.Equal(t, "Ты ассистент прораба. Отвечай кратко.", s.Prompt)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("no frontmatter here")
	assert.Error(t, err)

	_, err = Parse("---\nname: x\nnever closed")
	assert.Error(t, err)

	_, err = Parse("---\ndescription: anonymous\n---\nbody")
	assert.Error(t, err)
}

func writeSkill(t *testing.T, dir, file, name, body string, priority int) {
	t.Helper()
	content := "---\nname: " + name + "\ndescription: test\n"
	if priority != 0 {
		content += "priority: " + strconv.Itoa(priority) + "\n"
	}
	content += "---\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestLoadPrecedence(t *testing.T) {
	builtin := t.TempDir()
	custom := t.TempDir()
	writeSkill(t, builtin, "a.md", "greeting", "builtin body", 0)
	writeSkill(t, custom, "b.md", "greeting", "custom body", 0)
	writeSkill(t, builtin, "c.md", "only-builtin", "keep me", 0)

	m := NewManager(builtin, custom, filepath.Join(builtin, "missing"))
	require.NoError(t, m.Load())

	assert.Equal(t, "custom body", m.Prompt("greeting"))
	assert.Equal(t, "keep me", m.Prompt("only-builtin"))
	assert.Equal(t, "", m.Prompt("nope"))
	assert.Len(t, m.All(), 2)
}

func TestLoadPriorityWithinDir(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "1.md", "dup", "low", 1)
	writeSkill(t, dir, "2.md", "dup", "high", 5)

	m := NewManager(dir)
	require.NoError(t, m.Load())
	assert.Equal(t, "high", m.Prompt("dup"))
}
