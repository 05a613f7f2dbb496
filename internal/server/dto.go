package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
)

const (
	maxUploadBytes = 100 << 20 // 100 MB across all parts
	maxMemoryBytes = 16 << 20
)

// FormRequest is the JSON form accepted by the preview and notes
// endpoints. Multipart requests use the same names for their parts.
type FormRequest struct {
	TargetWord          string `json:"targetWord"`
	Definition          string `json:"definition"`
	Sentence            string `json:"sentence"`
	SentenceTranslation string `json:"sentenceTranslation"`
	ExampleSentences    string `json:"exampleSentences"`
	Notes               string `json:"notes"`
	MemeMode            bool   `json:"memeMode"`
	ModifySyntax        bool   `json:"modifySyntax"`
}

func (f FormRequest) state() compose.FormState {
	return compose.FormState{
		TargetWord:          f.TargetWord,
		Definition:          f.Definition,
		Sentence:            f.Sentence,
		SentenceTranslation: f.SentenceTranslation,
		ExampleSentences:    f.ExampleSentences,
		Notes:               f.Notes,
		MemeMode:            f.MemeMode,
		ModifySyntax:        f.ModifySyntax,
	}
}

// PreviewResponse is returned by POST /api/preview.
type PreviewResponse struct {
	Deck        string            `json:"deck"`
	Model       string            `json:"model"`
	Fields      map[string]string `json:"fields"`
	FieldOrder  []string          `json:"fieldOrder"`
	Audio1      string            `json:"audio1Field,omitempty"`
	Audio2      string            `json:"audio2Field,omitempty"`
	Images      string            `json:"imagesField,omitempty"`
	Annotations []string          `json:"annotations,omitempty"`
	CanAdd      *bool             `json:"canAdd,omitempty"`
}

func previewResponse(n compose.ComposedNote) PreviewResponse {
	return PreviewResponse{
		Deck:        n.Deck,
		Model:       n.Model,
		Fields:      n.Fields.Map(),
		FieldOrder:  n.Fields.Names(),
		Audio1:      n.Audio1.Field,
		Audio2:      n.Audio2.Field,
		Images:      n.Images.Field,
		Annotations: n.Annotations,
	}
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State    string `json:"state"`
	Banner   string `json:"banner"`
	InFlight bool   `json:"inFlight"`
	Endpoint string `json:"endpoint"`
}

// GenerateRequest is the body of POST /api/generate/{section}.
type GenerateRequest struct {
	Word     string `json:"word"`
	Sentence string `json:"sentence"`
	Language string `json:"language"`
}

// parseForm reads a form from a JSON body or a multipart upload.
func parseForm(w http.ResponseWriter, r *http.Request) (compose.FormState, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req FormRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			return compose.FormState{}, fmt.Errorf("invalid JSON form: %w", err)
		}
		return req.state(), nil
	}

	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		return compose.FormState{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	var form compose.FormState
	for _, sec := range settings.TextSections() {
		form.SetText(sec, r.FormValue(string(sec)))
	}
	form.MemeMode, _ = strconv.ParseBool(r.FormValue("memeMode"))
	form.ModifySyntax, _ = strconv.ParseBool(r.FormValue("modifySyntax"))

	files := r.MultipartForm.File
	var err error
	if form.SentenceAudio, err = firstPart(files[string(settings.SentenceAudio)]); err != nil {
		return form, err
	}
	if form.WordAudio, err = firstPart(files[string(settings.WordAudio)]); err != nil {
		return form, err
	}
	for _, fh := range files[string(settings.Images)] {
		att, err := readPart(fh)
		if err != nil {
			return form, err
		}
		form.AddImages(att)
	}
	return form, nil
}

func firstPart(headers []*multipart.FileHeader) (media.Attachment, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	return readPart(headers[0])
}

func readPart(fh *multipart.FileHeader) (media.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return media.FromBytes(fh.Filename, data), nil
}
