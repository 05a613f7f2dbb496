package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/archive"
	"codeberg.org/snonux/ankiform/internal/models"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/testutil"
)

type harness struct {
	fake  *testutil.FakeAnki
	store string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "PIXABAY_API_KEY"} {
		t.Setenv(key, "")
	}
	viper.Set("cache.directory", t.TempDir())

	return &harness{
		fake:  testutil.NewFakeAnki(t),
		store: filepath.Join(t.TempDir(), "ankiform.db"),
	}
}

func (h *harness) run(args ...string) (string, error) {
	flags := NewFlags()
	cmd := CreateRootCommand(flags)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--endpoint", h.fake.URL(), "--store", h.store, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateRootCommand(t *testing.T) {
	cmd := CreateRootCommand(NewFlags())

	require.Equal(t, "ankiform", cmd.Use)
	require.Contains(t, cmd.Short, "AnkiConnect")

	for _, name := range []string{"config", "endpoint", "store", "log-level"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"add", "preview", "settings", "decks", "models", "fields",
		"status", "history", "serve", "mcp", "generate", "check", "openai-models", "archive-cache"} {
		require.Contains(t, names, want)
	}
}

func TestAddCommand(t *testing.T) {
	h := newHarness(t)
	files := testutil.CreateMediaFiles(t, "w.mp3", "a.png")

	out, err := h.run("add", "котка", "-d", "cat", "--word-audio", files[0], "-i", files[1])
	require.NoError(t, err)
	require.Contains(t, out, "Note added successfully!")
	require.Contains(t, out, "Stored: _w.mp3")
	require.Contains(t, out, "Stored: _a.png")

	notes := h.fake.Notes()
	require.Len(t, notes, 1)
	require.Equal(t, "котка", notes[0].Fields["Front"])
	require.Equal(t, `<strong>Definition</strong><br>cat[sound:_w.mp3]<br><img src="_a.png" />`, notes[0].Fields["Back"])
	require.Equal(t, []string{"web-creator"}, notes[0].Tags)

	out, err = h.run("add", "котка")
	require.Error(t, err)
	require.Contains(t, out, "Error: cannot create note because it is a duplicate")

	out, err = h.run("history", "--limit", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "error: cannot create note because it is a duplicate")
	require.Contains(t, lines[1], "котка")
	require.Contains(t, lines[1], "Default/Basic")
}

func TestCheckCommandAddsNothing(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("add", "котка", "-d", "cat")
	require.NoError(t, err)
	list := testutil.CreateTestFile(t, filepath.Join(t.TempDir(), "words.txt"),
		[]byte("# animals\nкотка = cat\nкуче\n"))

	out, err := h.run("check", list)
	require.EqualError(t, err, "1 of 2 notes would be rejected")
	require.Contains(t, out, "котка: would be rejected (duplicate or invalid)")
	require.Contains(t, out, "куче: would be accepted")

	require.Len(t, h.fake.Notes(), 1)
	adds := 0
	for _, a := range h.fake.Actions() {
		if a == "addNote" {
			adds++
		}
	}
	require.Equal(t, 1, adds)
}

func TestAddCommandRejectsEmptyWord(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("add", "-d", "definition only")
	require.ErrorIs(t, err, processor.ErrEmptyWord)
	require.NotContains(t, h.fake.Actions(), "addNote")
}

func TestPreviewCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("preview", "cat", "-d", "feline", "--modify-syntax", "--check")
	require.NoError(t, err)
	require.Contains(t, out, "Deck: Default")
	require.Contains(t, out, "[Front]\ncat")
	require.Contains(t, out, "<strong>Definition</strong><br>feline")
	require.Contains(t, out, "syntax: modified")
	require.Contains(t, out, "Anki would accept this note.")
	require.Equal(t, []string{"canAddNotes"}, h.fake.Actions())
}

func TestSettingsCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("settings", "set", "deck", "Bulgarian")
	require.NoError(t, err)
	require.Contains(t, out, "deckName: Bulgarian")

	out, err = h.run("settings", "set", "audio1", "field:Audio")
	require.NoError(t, err)
	require.Contains(t, out, "fieldName: Audio")

	_, err = h.run("settings", "set", "audio1", "sideways")
	require.Error(t, err)

	out, err = h.run("settings", "move", "notes", "0")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "0. Notes\n1. Word\n"), out)

	exported := filepath.Join(t.TempDir(), "settings.yaml")
	_, err = h.run("settings", "export", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	require.Contains(t, string(data), "deckName: Bulgarian")

	_, err = h.run("settings", "reset")
	require.NoError(t, err)
	out, err = h.run("settings", "show")
	require.NoError(t, err)
	require.Contains(t, out, "deckName: Default")

	_, err = h.run("settings", "import", exported)
	require.NoError(t, err)
	out, err = h.run("settings", "show")
	require.NoError(t, err)
	require.Contains(t, out, "deckName: Bulgarian")
	require.Contains(t, out, "fieldName: Audio")
}

func TestListingCommands(t *testing.T) {
	h := newHarness(t)
	h.fake.SetModel("Vocab", "Word", "Meaning")

	out, err := h.run("decks")
	require.NoError(t, err)
	require.Equal(t, "Default\n", out)

	out, err = h.run("models")
	require.NoError(t, err)
	require.Equal(t, "Basic\nVocab\n", out)

	out, err = h.run("fields", "Vocab")
	require.NoError(t, err)
	require.Equal(t, "Word\nMeaning\n", out)

	out, err = h.run("fields")
	require.NoError(t, err)
	require.Equal(t, "Front\nBack\n", out)

	_, err = h.run("settings", "set", "map", "notes=Extra")
	require.NoError(t, err)
	out, err = h.run("fields")
	require.NoError(t, err)
	require.Contains(t, out, "Warning: settings refer to missing fields: Extra")
}

func TestStatusCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("status")
	require.NoError(t, err)
	require.Equal(t, "Connected to Anki ("+h.fake.URL()+")\n", out)

	h.fake.Server.Close()
	out, err = h.run("status")
	require.Error(t, err)
	require.Contains(t, out, "You are not connected to Anki")
}

func TestGenerateCommand(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("generate", "definition", "cat")
	require.ErrorContains(t, err, "no assistant API key")

	ai := testutil.NewFakeOpenAI(t)
	ai.SetChatReply("a small feline")
	t.Setenv("OPENAI_API_KEY", "test-key")
	viper.Set("openai.base_url", ai.BaseURL())

	out, err := h.run("generate", "definition", "cat")
	require.NoError(t, err)
	require.Equal(t, "a small feline\n", out)

	_, err = h.run("generate", "images", "cat")
	require.ErrorContains(t, err, "cannot generate section images")
}

func TestOpenAIModelsCommand(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("openai-models")
	require.ErrorIs(t, err, models.ErrNoAPIKey)

	ai := testutil.NewFakeOpenAI(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	viper.Set("openai.base_url", ai.BaseURL())

	out, err := h.run("openai-models")
	require.NoError(t, err)
	require.Contains(t, out, "Audio (speech) models:\n  tts-1\n")
	require.Contains(t, out, "Image models:\n  dall-e-3\n")
	require.Contains(t, out, "Assistant (chat) models:\n  gpt-4o-mini\n")
}

func TestArchiveCacheCommand(t *testing.T) {
	h := newHarness(t)
	cache := filepath.Join(t.TempDir(), "cache")
	viper.Set("cache.directory", cache)
	testutil.CreateTestFile(t, filepath.Join(cache, "a.mp3"), []byte("mp3"))

	out, err := h.run("archive-cache")
	require.NoError(t, err)
	require.Contains(t, out, "Cache archived to: "+filepath.Join(filepath.Dir(cache), "archive", "cache-"))
	require.NoDirExists(t, cache)

	_, err = h.run("archive-cache")
	require.ErrorIs(t, err, archive.ErrNothingToArchive)
}

func TestAddCommandWithCreateActions(t *testing.T) {
	h := newHarness(t)
	ai := testutil.NewFakeOpenAI(t)
	ai.SetChatReply("feline")
	t.Setenv("OPENAI_API_KEY", "test-key")
	viper.Set("openai.base_url", ai.BaseURL())

	out, err := h.run("add", "cat", "--generate", "definition", "--create-word-audio", "--create-image")
	require.NoError(t, err, out)

	notes := h.fake.Notes()
	require.Len(t, notes, 1)
	back := notes[0].Fields["Back"]
	require.Contains(t, back, "<strong>Definition</strong><br>feline")
	require.Contains(t, back, "[sound:_cat.mp3]")
	require.Contains(t, back, `<img src="_cat_openai.png" />`)

	_, ok := h.fake.Media("_cat.mp3")
	require.True(t, ok)
	require.Len(t, ai.Calls(), 3)
}

func TestApplySetting(t *testing.T) {
	base := settings.Default()

	tests := []struct {
		key, value string
		check      func(t *testing.T, got settings.Settings)
		wantErr    bool
	}{
		{key: "model", value: " Vocab ", check: func(t *testing.T, got settings.Settings) {
			require.Equal(t, "Vocab", got.ModelName)
		}},
		{key: "images", value: "none", check: func(t *testing.T, got settings.Settings) {
			require.Equal(t, "none", got.ImagesTarget.String())
		}},
		{key: "allow-duplicate", value: "true", check: func(t *testing.T, got settings.Settings) {
			require.True(t, got.AllowDuplicate)
		}},
		{key: "tags", value: "vocab, bg,,", check: func(t *testing.T, got settings.Settings) {
			require.Equal(t, []string{"vocab", "bg"}, got.Tags)
		}},
		{key: "map", value: "sentence=Example", check: func(t *testing.T, got settings.Settings) {
			require.Equal(t, "Example", got.SectionToField["sentence"])
		}},
		{key: "allow-duplicate", value: "maybe", wantErr: true},
		{key: "map", value: "targetWord=Front", wantErr: true},
		{key: "map", value: "sentence", wantErr: true},
		{key: "colour", value: "blue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := applySetting(base, tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
	require.Equal(t, settings.Default(), base)
}
