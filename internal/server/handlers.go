package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/sse"
	"codeberg.org/snonux/ankiform/internal/submit"
)

const defaultHistoryLimit = 20

// GetSettings handles GET /api/settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.proc.Settings(r.Context()))
}

// PutSettings handles PUT /api/settings. Missing keys keep their default
// values; the merged result must validate.
func (s *Server) PutSettings(w http.ResponseWriter, r *http.Request) {
	var partial settings.Partial
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&partial); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid settings JSON: "+err.Error()))
		return
	}
	saved, err := s.proc.SaveSettings(r.Context(), settings.Normalize(partial))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteSettings handles DELETE /api/settings.
func (s *Server) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.proc.ResetSettings(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings.Default())
}

// ListDecks handles GET /api/decks.
func (s *Server) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.proc.Decks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// ListModels handles GET /api/models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.proc.Models(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// ListModelFields handles GET /api/models/{model}/fields.
func (s *Server) ListModelFields(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	fields, err := s.proc.ModelFields(r.Context(), model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": model, "fields": fields})
}

// Preview handles POST /api/preview. With ?check=true the composed note
// is also checked against the collection for duplicates.
func (s *Server) Preview(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := s.proc.Preview(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := previewResponse(note)
	if check, _ := strconv.ParseBool(r.URL.Query().Get("check")); check && note.Front != "" {
		ok, err := s.proc.CanAdd(r.Context(), note)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.CanAdd = &ok
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddNote handles POST /api/notes. A second request while one is being
// submitted gets 409 Conflict.
func (s *Server) AddNote(w http.ResponseWriter, r *http.Request) {
	if s.proc.InFlight() {
		writeJSON(w, http.StatusConflict, submit.Outcome(nil, submit.ErrInFlight))
		return
	}
	form, err := parseForm(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := s.proc.Submit(r.Context(), form)
	status := submit.Outcome(res, err)
	if err != nil {
		s.broker.Publish(sse.Event{Type: sse.TypeNoteFailed, Data: status})
		writeJSON(w, statusFor(err), status)
		return
	}
	s.broker.Publish(sse.Event{Type: sse.TypeNoteAdded, Data: map[string]any{"noteId": res.NoteID}})
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": status,
		"result": res,
	})
}

// Status handles GET /api/status.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	st := s.State()
	writeJSON(w, http.StatusOK, StatusResponse{
		State:    st.String(),
		Banner:   st.Banner(),
		InFlight: s.proc.InFlight(),
		Endpoint: s.endpoint,
	})
}

// History handles GET /api/history?limit=N.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := s.proc.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": entries})
}

// Generate handles POST /api/generate/{section}.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("text generation is not configured"))
		return
	}
	section, err := settings.ParseSection(chi.URLParam(r, "section"))
	if err != nil || !assist.Supports(section) {
		writeJSON(w, http.StatusNotFound, errorBody("cannot generate section "+chi.URLParam(r, "section")))
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON: "+err.Error()))
		return
	}
	text, err := s.generator.Generate(r.Context(), section, assist.Request{
		Word:     req.Word,
		Sentence: req.Sentence,
		Language: req.Language,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"section": string(section), "text": text})
}

func (s *Server) live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ready(w http.ResponseWriter, _ *http.Request) {
	st := s.State()
	if st != probe.Connected {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": st.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
