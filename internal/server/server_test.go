package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/ankiconnect"
	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/store"
	"codeberg.org/snonux/ankiform/internal/testutil"
)

func newTestServer(t *testing.T, gen *assist.Generator) (*Server, *testutil.FakeAnki) {
	t.Helper()
	fake := testutil.NewFakeAnki(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "ankiform.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := ankiconnect.NewClient(&ankiconnect.Config{Endpoint: fake.URL(), Timeout: 2 * time.Second})
	s := New(Config{
		Processor: processor.NewProcessor(processor.Config{
			Remote:   client,
			Settings: settings.NewStore(db, nil),
			History:  db,
		}),
		Checker:   client,
		Probe:     &probe.Config{Interval: 20 * time.Millisecond},
		Generator: gen,
		Endpoint:  fake.URL(),
	})
	t.Cleanup(s.broker.Close)
	return s, fake
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSettingsEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, settings.Default(), decode[settings.Settings](t, w))

	w = do(t, s, http.MethodPut, "/api/settings", map[string]any{
		"deckName":     "Bulgarian",
		"sectionOrder": []string{"notes", "definition"},
		"audio2Target": map[string]string{"mode": "none"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[settings.Settings](t, w)
	require.Equal(t, "Bulgarian", saved.DeckName)
	require.Equal(t, settings.Notes, saved.SectionOrder[0])
	require.Len(t, saved.SectionOrder, len(settings.AllSections()))
	require.Equal(t, settings.PlaceNone, saved.Audio2Target.Mode)

	w = do(t, s, http.MethodPut, "/api/settings", map[string]any{
		"imagesTarget": map[string]string{"mode": "field"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, settings.Placement{Mode: settings.PlaceBack}, decode[settings.Settings](t, w).ImagesTarget)

	w = do(t, s, http.MethodPut, "/api/settings", map[string]any{"deckName": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodDelete, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodGet, "/api/settings", nil)
	require.Equal(t, "Default", decode[settings.Settings](t, w).DeckName)
}

func TestListingEndpoints(t *testing.T) {
	s, fake := newTestServer(t, nil)
	fake.SetModel("Vocab", "Word", "Meaning")

	w := do(t, s, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"decks":["Default"]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/models", nil)
	require.JSONEq(t, `{"models":["Basic","Vocab"]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/models/Vocab/fields", nil)
	require.JSONEq(t, `{"model":"Vocab","fields":["Word","Meaning"]}`, w.Body.String())

	fake.SetError("deckNames", "collection is not available")
	w = do(t, s, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.JSONEq(t, `{"error":"collection is not available"}`, w.Body.String())
}

func TestPreviewEndpoint(t *testing.T) {
	s, fake := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/api/preview?check=true", FormRequest{
		TargetWord: "cat",
		Definition: "feline",
		MemeMode:   true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[PreviewResponse](t, w)
	require.Equal(t, []string{"Front", "Back"}, resp.FieldOrder)
	require.Equal(t, "cat", resp.Fields["Front"])
	require.Equal(t, "<strong>Definition</strong><br>feline", resp.Fields["Back"])
	require.Equal(t, "Front", resp.Audio1)
	require.NotNil(t, resp.CanAdd)
	require.True(t, *resp.CanAdd)
	require.Equal(t, []string{"<em>meme mode: on</em>"}, resp.Annotations)
	require.Equal(t, []string{"canAddNotes"}, fake.Actions())
}

func multipartForm(t *testing.T, fields map[string]string, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for part, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(part, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("data:" + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAddNoteMultipart(t *testing.T) {
	s, fake := newTestServer(t, nil)
	events := s.broker.Subscribe()

	body, contentType := multipartForm(t,
		map[string]string{"targetWord": "ябълка", "definition": "apple", "memeMode": "true"},
		map[string][]string{"wordAudio": {"w.mp3"}, "images": {"a.png", "b.png"}})
	req := httptest.NewRequest(http.MethodPost, "/api/notes", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"message":"Note added successfully!"`)

	notes := fake.Notes()
	require.Len(t, notes, 1)
	require.Equal(t, "ябълка", notes[0].Fields["Front"])
	require.Equal(t,
		`<strong>Definition</strong><br>apple[sound:_w.mp3]<br><img src="_a.png" /><br><img src="_b.png" />`,
		notes[0].Fields["Back"])
	data, ok := fake.Media("_a.png")
	require.True(t, ok)
	require.NotEmpty(t, data)

	select {
	case msg := <-events:
		require.Contains(t, string(msg), "event: note.added")
	case <-time.After(time.Second):
		t.Fatal("no note.added event")
	}

	w = do(t, s, http.MethodPost, "/api/notes", FormRequest{TargetWord: "ябълка"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.JSONEq(t, `{"kind":"error","message":"Error: cannot create note because it is a duplicate"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/notes", FormRequest{Definition: "no word"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/history?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Submissions []store.Submission `json:"submissions"`
	}](t, w)
	require.Len(t, hist.Submissions, 2)
	require.NotEmpty(t, hist.Submissions[0].Error)
}

func TestAddNoteConnectivityError(t *testing.T) {
	s, fake := newTestServer(t, nil)
	fake.Server.Close()

	w := do(t, s, http.MethodPost, "/api/notes", FormRequest{TargetWord: "x"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), `"kind":"error"`)
}

func TestGenerateEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodPost, "/api/generate/definition", GenerateRequest{Word: "cat"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ai := testutil.NewFakeOpenAI(t)
	ai.SetChatReply("a small feline")
	gen, err := assist.New(assist.Config{OpenAIKey: "k", OpenAIBaseURL: ai.BaseURL()})
	require.NoError(t, err)
	s, _ = newTestServer(t, gen)

	w = do(t, s, http.MethodPost, "/api/generate/definition", GenerateRequest{Word: "cat"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"section":"definition","text":"a small feline"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/generate/images", GenerateRequest{Word: "cat"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/generate/notes", GenerateRequest{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeProbesAndShutsDown(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return s.State() == probe.Connected }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/status")
	require.NoError(t, err)
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	require.Equal(t, "connected", status.State)
	require.Equal(t, "Connected to Anki", status.Banner)
	require.False(t, status.InFlight)

	resp, err = http.Get("http://" + ln.Addr().String() + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestEventsStreamConnectionState(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.SetState(probe.Disconnected)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		s.Handler().ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	require.True(t, strings.Contains(w.Body.String(), `"banner":"You are not connected to Anki"`), w.Body.String())
}
