package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultMaxBytes bounds the size of a single attachment.
const DefaultMaxBytes int64 = 50 << 20

// DefaultPrefix is prepended to every stored filename so stored media does
// not collide with files the flashcard application names itself.
const DefaultPrefix = "_"

// ErrTooLarge is wrapped by an EncodingError for oversized attachments.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// EncodingError reports an attachment whose bytes could not be encoded.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %q: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encoded is an attachment in transport form.
type Encoded struct {
	// Filename is the sanitized, prefixed name the file is stored under.
	Filename string
	// Data is the standard base64 encoding of the file bytes.
	Data string
	// Size is the number of raw bytes.
	Size int64
}

// Config configures an Encoder.
type Config struct {
	MaxBytes int64
	Prefix   string
	Logger   *slog.Logger
}

// DefaultConfig returns the default encoder configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxBytes: DefaultMaxBytes,
		Prefix:   DefaultPrefix,
	}
}

// Encoder turns attachments into base64 payloads.
type Encoder struct {
	config *Config
	logger *slog.Logger
}

// NewEncoder creates an encoder. A nil config uses DefaultConfig.
func NewEncoder(config *Config) *Encoder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{config: config, logger: logger}
}

// StoredName returns the name an attachment called name is stored under.
func (e *Encoder) StoredName(name string) string {
	return e.config.Prefix + SanitizeFilename(name)
}

// Encode reads and encodes a. A nil attachment yields nil and no error.
func (e *Encoder) Encode(a Attachment) (*Encoded, error) {
	if a == nil {
		return nil, nil
	}

	rc, err := a.Open()
	if err != nil {
		return nil, &EncodingError{Name: a.Name(), Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, e.config.MaxBytes+1))
	if err != nil {
		return nil, &EncodingError{Name: a.Name(), Err: err}
	}
	if int64(len(data)) > e.config.MaxBytes {
		return nil, &EncodingError{
			Name: a.Name(),
			Err:  fmt.Errorf("%w (%d bytes)", ErrTooLarge, e.config.MaxBytes),
		}
	}

	enc := &Encoded{
		Filename: e.StoredName(a.Name()),
		Data:     base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
	}
	e.logger.Debug("media: encoded",
		slog.String("name", a.Name()),
		slog.String("stored", enc.Filename),
		slog.Int64("bytes", enc.Size))
	return enc, nil
}

// EncodeAll encodes every attachment, in order. A failing attachment does
// not stop the others; all failures are joined into the returned error and
// the successfully encoded attachments are returned in their input order.
func (e *Encoder) EncodeAll(as []Attachment) ([]*Encoded, error) {
	var (
		out  []*Encoded
		errs []error
	)
	for _, a := range as {
		enc, err := e.Encode(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if enc != nil {
			out = append(out, enc)
		}
	}
	return out, errors.Join(errs...)
}

// SanitizeFilename keeps letters, digits, dots, dashes and underscores and
// replaces everything else with an underscore, so the name can be embedded
// in sound and image markers verbatim.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
