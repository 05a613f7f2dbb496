package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeOpenAI serves the chat, speech and image endpoints of the OpenAI API
// with canned replies. Point a client at BaseURL().
type FakeOpenAI struct {
	Server *httptest.Server

	mu      sync.Mutex
	chat    string
	speech  []byte
	image   []byte
	models  []string
	failing map[string]string
	prompts []string
	calls   []string
}

// NewFakeOpenAI starts a fake that is closed when t finishes.
func NewFakeOpenAI(t *testing.T) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{
		chat:    "generated text",
		speech:  []byte("ID3fake-mp3"),
		image:   []byte("\x89PNGfake"),
		models:  []string{"gpt-4o-mini", "tts-1", "dall-e-3"},
		failing: map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", f.handleChat)
	mux.HandleFunc("/v1/audio/speech", f.handleSpeech)
	mux.HandleFunc("/v1/images/generations", f.handleImage)
	mux.HandleFunc("/v1/models", f.handleModels)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the value for openai.ClientConfig.BaseURL.
func (f *FakeOpenAI) BaseURL() string {
	return f.Server.URL + "/v1"
}

// SetChatReply sets the content of every chat completion.
func (f *FakeOpenAI) SetChatReply(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = content
}

// SetSpeech sets the audio bytes returned by the speech endpoint.
func (f *FakeOpenAI) SetSpeech(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speech = data
}

// SetImage sets the image bytes returned by the image endpoint.
func (f *FakeOpenAI) SetImage(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = data
}

// SetModels sets the model IDs returned by the models endpoint.
func (f *FakeOpenAI) SetModels(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = ids
}

// Fail makes the endpoint at path ("/v1/chat/completions", ...) answer
// with a 400 API error carrying message.
func (f *FakeOpenAI) Fail(path, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = message
}

// Prompts returns the chat prompts, speech inputs and image prompts seen
// so far, in order.
func (f *FakeOpenAI) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Calls returns the request paths seen so far.
func (f *FakeOpenAI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeOpenAI) begin(w http.ResponseWriter, r *http.Request, prompt string) bool {
	f.mu.Lock()
	f.calls = append(f.calls, r.URL.Path)
	f.prompts = append(f.prompts, prompt)
	msg, failing := f.failing[r.URL.Path]
	f.mu.Unlock()
	if failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": msg, "type": "invalid_request_error"},
		})
		return false
	}
	return true
}

func (f *FakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	prompt := ""
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	if !f.begin(w, r, prompt) {
		return
	}
	f.mu.Lock()
	content := f.chat
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-fake",
		"object": "chat.completion",
		"model":  "fake",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func (f *FakeOpenAI) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if !f.begin(w, r, req.Input) {
		return
	}
	f.mu.Lock()
	data := f.speech
	f.mu.Unlock()
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(data)
}

func (f *FakeOpenAI) handleImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if !f.begin(w, r, req.Prompt) {
		return
	}
	f.mu.Lock()
	data := f.image
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"created": 1,
		"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(data)}},
	})
}

func (f *FakeOpenAI) handleModels(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, "") {
		return
	}
	f.mu.Lock()
	data := make([]map[string]any, 0, len(f.models))
	for _, id := range f.models {
		data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "fake"})
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}
