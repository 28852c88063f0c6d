package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTurns(n int) []Turn {
	turns := make([]Turn, n)
	for i := range turns {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		turns[i] = Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}
	return turns
}

func TestPrune(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 11} {
		for _, limit := range []int{1, 2, 5, 10} {
			t.Run(fmt.Sprintf("len=%d/limit=%d", n, limit), func(t *testing.T) {
				turns := makeTurns(n)
				got := Prune(turns, limit)

				keep := min(n, limit)
				require.Len(t, got, keep)
				assert.Equal(t, turns[n-keep:], got)
			})
		}
	}
}

func TestPruneDisabled(t *testing.T) {
	turns := makeTurns(7)
	assert.Equal(t, turns, Prune(turns, 0))
	assert.Equal(t, turns, Prune(turns, -3))
}

func TestConversation(t *testing.T) {
	src := makeTurns(3)
	c := NewConversation(src)
	c.Append(RoleAssistant, "reply")

	assert.Equal(t, 4, c.Len())
	assert.Len(t, src, 3, "source slice must not be modified")

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "reply"}, last)

	c.Prune(2)
	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "turn 2"},
		{Role: RoleAssistant, Content: "reply"},
	}, c.Turns())

	_, ok = NewConversation(nil).Last()
	assert.False(t, ok)
}

func TestStoreMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "memory.json"))

	turns := s.Load()
	assert.NotNil(t, turns)
	assert.Empty(t, turns)

	strict, err := s.LoadStrict()
	require.NoError(t, err)
	assert.Empty(t, strict)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories", "conversation_memory.json")
	s := NewStore(path)

	turns := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi! \"quoted\" and ünïcode"},
	}
	require.NoError(t, s.Save(turns))
	assert.Equal(t, turns, s.Load())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreSaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	s := NewStore(path)
	require.NoError(t, s.Save([]Turn{{Role: RoleUser, Content: "hello"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "[\n    {\n        \"role\": \"user\",\n        \"content\": \"hello\"\n    }\n]"
	assert.Equal(t, want, string(data))
}

func TestStoreSaveKeepsMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	s := NewStore(path)
	require.NoError(t, s.Save([]Turn{{Role: RoleUser, Content: "a < b & c > d"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content": "a < b & c > d"`)
	assert.NotContains(t, string(data), `\u0026`)

	turns, err := s.LoadStrict()
	require.NoError(t, err)
	assert.Equal(t, "a < b & c > d", turns[0].Content)
}

func TestStoreSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	s := NewStore(path)
	require.NoError(t, s.Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStoreCorruptFile(t *testing.T) {
	cases := map[string]string{
		"garbage":   "{not json",
		"object":    `{"role":"user"}`,
		"empty":     "",
		"truncated": `[{"role":"user","content":"hel`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "m.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			s := NewStore(path)

			turns := s.Load()
			assert.NotNil(t, turns)
			assert.Empty(t, turns)

			_, err := s.LoadStrict()
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestStoreNullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0644))

	turns, err := NewStore(path).LoadStrict()
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestStoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	s := NewStore(path)
	require.NoError(t, s.Save(makeTurns(6)))
	require.NoError(t, s.Save(makeTurns(1)))

	assert.Equal(t, makeTurns(1), s.Load())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "turn 5"))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewStore("").Path())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
}
