package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"
)

// AnkiRequest is one request received by FakeAnki.
type AnkiRequest struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// AnkiNote is a note as received by the addNote action.
type AnkiNote struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   struct {
		AllowDuplicate bool `json:"allowDuplicate"`
	} `json:"options"`
	Tags []string `json:"tags"`
}

// FakeAnki is an in-process AnkiConnect stand-in.
type FakeAnki struct {
	Server *httptest.Server

	mu          sync.Mutex
	requests    []AnkiRequest
	decks       []string
	modelFields map[string][]string
	media       map[string]string
	notes       []AnkiNote
	nextID      int64
	raw         map[string]string
	errs        map[string]string
	delay       time.Duration
}

// NewFakeAnki starts a fake AnkiConnect with one deck ("Default") and the
// Basic model. It is closed when the test ends.
func NewFakeAnki(t testing.TB) *FakeAnki {
	t.Helper()
	f := &FakeAnki{
		decks: []string{"Default"},
		modelFields: map[string][]string{
			"Basic": {"Front", "Back"},
		},
		media:  map[string]string{},
		nextID: 1496198395707,
		raw:    map[string]string{},
		errs:   map[string]string{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the endpoint of the fake.
func (f *FakeAnki) URL() string { return f.Server.URL }

// SetDecks replaces the deck list.
func (f *FakeAnki) SetDecks(decks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks = decks
}

// SetModel adds or replaces a model and its fields.
func (f *FakeAnki) SetModel(name string, fields ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modelFields[name] = fields
}

// SetRaw makes action answer with body verbatim.
func (f *FakeAnki) SetRaw(action, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[action] = body
}

// SetError makes action answer with an application error.
func (f *FakeAnki) SetError(action, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[action] = msg
}

// SetDelay delays every answer.
func (f *FakeAnki) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Requests returns every request received so far.
func (f *FakeAnki) Requests() []AnkiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// Actions returns the action names received so far, in order.
func (f *FakeAnki) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Action)
	}
	return out
}

// Notes returns the notes added so far.
func (f *FakeAnki) Notes() []AnkiNote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.notes)
}

// Media returns the base64 data stored under filename.
func (f *FakeAnki) Media(filename string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.media[filename]
	return v, ok
}

func (f *FakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	var req AnkiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, nil, "failed to parse request")
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	delay := f.delay
	raw, hasRaw := f.raw[req.Action]
	errMsg, hasErr := f.errs[req.Action]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if hasRaw {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(raw))
		return
	}
	if hasErr {
		writeEnvelope(w, nil, errMsg)
		return
	}

	result, errValue := f.handle(req)
	writeEnvelope(w, result, errValue)
}

func (f *FakeAnki) handle(req AnkiRequest) (any, any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Action {
	case "version":
		return 6, nil
	case "deckNames":
		return f.decks, nil
	case "modelNames":
		names := make([]string, 0, len(f.modelFields))
		for name := range f.modelFields {
			names = append(names, name)
		}
		slices.Sort(names)
		return names, nil
	case "modelFieldNames":
		var p struct {
			ModelName string `json:"modelName"`
		}
		json.Unmarshal(req.Params, &p)
		fields, ok := f.modelFields[p.ModelName]
		if !ok {
			return nil, "model was not found: " + p.ModelName
		}
		return fields, nil
	case "storeMediaFile":
		var p struct {
			Filename string `json:"filename"`
			Data     string `json:"data"`
		}
		json.Unmarshal(req.Params, &p)
		f.media[p.Filename] = p.Data
		return p.Filename, nil
	case "addNote":
		var p struct {
			Note AnkiNote `json:"note"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err.Error()
		}
		if msg := f.checkNote(p.Note); msg != "" {
			return nil, msg
		}
		f.notes = append(f.notes, p.Note)
		f.nextID++
		return f.nextID, nil
	case "canAddNotes":
		var p struct {
			Notes []AnkiNote `json:"notes"`
		}
		json.Unmarshal(req.Params, &p)
		out := make([]bool, 0, len(p.Notes))
		for _, n := range p.Notes {
			out = append(out, f.checkNote(n) == "")
		}
		return out, nil
	}
	return nil, "unsupported action"
}

// checkNote mirrors the add-on's validation: known deck and model, a
// non-empty first field and no duplicate first field.
func (f *FakeAnki) checkNote(n AnkiNote) string {
	if !slices.Contains(f.decks, n.DeckName) {
		return "deck was not found: " + n.DeckName
	}
	fields, ok := f.modelFields[n.ModelName]
	if !ok {
		return "model was not found: " + n.ModelName
	}
	for name := range n.Fields {
		if !slices.Contains(fields, name) {
			return "cannot create note because field " + name + " does not exist"
		}
	}
	first := n.Fields[fields[0]]
	if first == "" {
		return "cannot create note because it is empty"
	}
	if n.Options.AllowDuplicate {
		return ""
	}
	for _, existing := range f.notes {
		if existing.ModelName == n.ModelName && existing.Fields[fields[0]] == first {
			return "cannot create note because it is a duplicate"
		}
	}
	return ""
}

func writeEnvelope(w http.ResponseWriter, result, errValue any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"result": result, "error": errValue})
}
