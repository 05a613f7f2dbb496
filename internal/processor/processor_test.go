package processor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/ankiconnect"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/store"
	"codeberg.org/snonux/ankiform/internal/submit"
	"codeberg.org/snonux/ankiform/internal/testutil"
)

func newTestProcessor(t *testing.T) (*Processor, *testutil.FakeAnki) {
	t.Helper()
	fake := testutil.NewFakeAnki(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "ankiform.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := NewProcessor(Config{
		Remote:   ankiconnect.NewClient(&ankiconnect.Config{Endpoint: fake.URL(), Timeout: 2 * time.Second}),
		Settings: settings.NewStore(db, nil),
		History:  db,
	})
	return p, fake
}

func TestNewProcessor(t *testing.T) {
	p, _ := newTestProcessor(t)
	if p.composer == nil {
		t.Error("Composer not initialized")
	}
	if p.orchestrator == nil {
		t.Error("Orchestrator not initialized")
	}
	if p.InFlight() {
		t.Error("new processor must not be in flight")
	}
}

func TestSubmitRecordsHistory(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)

	form := compose.FormState{
		TargetWord: "ubiquitous",
		Definition: "existing everywhere",
		WordAudio:  media.FromBytes("word.mp3", []byte("w")),
	}
	res, err := p.Submit(ctx, form)
	require.NoError(t, err)
	require.Equal(t, submit.MsgAdded, submit.Outcome(res, err).Message)

	notes := fake.Notes()
	require.Len(t, notes, 1)
	require.Equal(t, "ubiquitous", notes[0].Fields["Front"])
	require.Equal(t, "<strong>Definition</strong><br>existing everywhere[sound:_word.mp3]", notes[0].Fields["Back"])

	_, err = p.Submit(ctx, form)
	require.True(t, ankiconnect.IsDuplicate(err))

	hist, err := p.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.False(t, hist[0].Succeeded())
	require.Equal(t, ankiconnect.ErrMsgDuplicate, hist[0].Error)
	require.Equal(t, []string{"_word.mp3"}, hist[0].Media)
	require.True(t, hist[1].Succeeded())
	require.Equal(t, res.NoteID, hist[1].NoteID)
	require.Equal(t, []string{"_word.mp3"}, hist[1].Media)
}

func TestSubmitEmptyWord(t *testing.T) {
	p, fake := newTestProcessor(t)
	_, err := p.Submit(context.Background(), compose.FormState{Definition: "orphan"})
	require.ErrorIs(t, err, ErrEmptyWord)
	require.Empty(t, fake.Requests())
}

func TestSettingsLifecycle(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)
	require.Equal(t, settings.Default(), p.Settings(ctx))

	s := settings.Default()
	s.DeckName = ""
	_, err := p.SaveSettings(ctx, s)
	require.ErrorIs(t, err, ErrInvalidSettings)

	s.DeckName = "Bulgarian"
	saved, err := p.SaveSettings(ctx, s)
	require.NoError(t, err)
	require.Equal(t, "Bulgarian", saved.DeckName)
	require.Equal(t, "Bulgarian", p.Settings(ctx).DeckName)

	require.NoError(t, p.ResetSettings(ctx))
	require.Equal(t, settings.Default(), p.Settings(ctx))
}

func TestPreviewAndCanAdd(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)

	note, err := p.Preview(ctx, compose.FormState{TargetWord: "cat", MemeMode: true})
	require.NoError(t, err)
	require.Equal(t, "cat", note.Front)
	require.Equal(t, []string{compose.MemeAnnotation}, note.Annotations)

	ok, err := p.CanAdd(ctx, note)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = p.Submit(ctx, compose.FormState{TargetWord: "cat"})
	require.NoError(t, err)

	ok, err = p.CanAdd(ctx, note)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoteListings(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)
	fake.SetModel("Vocab", "Word", "Meaning")

	decks, err := p.Decks(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Default"}, decks)

	models, err := p.Models(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Basic", "Vocab"}, models)

	fields, err := p.ModelFields(ctx, "Vocab")
	require.NoError(t, err)
	require.Equal(t, []string{"Word", "Meaning"}, fields)

	s := settings.Default()
	s.ModelName = "Vocab"
	s.FrontFieldName = "Word"
	s.SectionToField[settings.Notes] = "Extra"
	missing, err := p.MissingFields(ctx, s)
	require.NoError(t, err)
	require.Equal(t, []string{"Back", "Extra"}, missing)
}
