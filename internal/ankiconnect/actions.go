package ankiconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"codeberg.org/snonux/ankiform/internal/anki"
)

// Call invokes action with the configured version and timeout and decodes
// the result into out. out may be nil.
func (c *Client) Call(ctx context.Context, action string, params any, out any) error {
	return c.CallTimeout(ctx, action, params, out, 0)
}

// CallTimeout is Call with an explicit timeout.
func (c *Client) CallTimeout(ctx context.Context, action string, params any, out any, timeout time.Duration) error {
	result, err := c.Invoke(ctx, action, c.config.Version, params, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return &ProtocolViolationError{
			Action: action,
			Reason: fmt.Sprintf("unexpected result %s", truncate(string(result), 80)),
		}
	}
	return nil
}

// Version returns the AnkiConnect API version. It doubles as a liveness
// check.
func (c *Client) Version(ctx context.Context, timeout time.Duration) (int, error) {
	var v int
	err := c.CallTimeout(ctx, "version", nil, &v, timeout)
	return v, err
}

// DeckNames lists the deck names.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.Call(ctx, "deckNames", nil, &names)
	return names, err
}

// ModelNames lists the note type names.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.Call(ctx, "modelNames", nil, &names)
	return names, err
}

// ModelFieldNames lists the fields of a note type, in model order.
func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var names []string
	err := c.Call(ctx, "modelFieldNames", map[string]string{"modelName": model}, &names)
	return names, err
}

// StoreMediaFile stores base64 data under filename and returns the name
// the file was stored under.
func (c *Client) StoreMediaFile(ctx context.Context, filename, data string) (string, error) {
	var stored any
	err := c.Call(ctx, "storeMediaFile", map[string]string{
		"filename": filename,
		"data":     data,
	}, &stored)
	if err != nil {
		return "", err
	}
	if name, ok := stored.(string); ok && name != "" {
		return name, nil
	}
	return filename, nil
}

// AddNote creates a note and returns its id.
func (c *Client) AddNote(ctx context.Context, note anki.Note) (int64, error) {
	var id int64
	err := c.Call(ctx, "addNote", map[string]any{"note": note}, &id)
	return id, err
}

// CanAddNotes reports, per note, whether it could be added. Duplicates
// report false.
func (c *Client) CanAddNotes(ctx context.Context, notes ...anki.Note) ([]bool, error) {
	var ok []bool
	err := c.Call(ctx, "canAddNotes", map[string]any{"notes": notes}, &ok)
	return ok, err
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
