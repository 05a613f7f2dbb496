package media

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Attachment is a named source of bytes selected by the user.
type Attachment interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type fileAttachment struct {
	path string
}

// FromPath returns an attachment backed by a file on disk. The file is
// only read when the attachment is encoded.
func FromPath(path string) Attachment {
	return fileAttachment{path: path}
}

func (f fileAttachment) Name() string { return filepath.Base(f.path) }

func (f fileAttachment) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// Path returns the file path of an attachment created with FromPath.
func Path(a Attachment) (string, bool) {
	f, ok := a.(fileAttachment)
	return f.path, ok
}

type bytesAttachment struct {
	name string
	data []byte
}

// FromBytes returns an in-memory attachment.
func FromBytes(name string, data []byte) Attachment {
	return bytesAttachment{name: name, data: data}
}

func (b bytesAttachment) Name() string { return b.name }

func (b bytesAttachment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// FromPaths converts file paths into attachments, skipping empty paths.
func FromPaths(paths ...string) []Attachment {
	out := make([]Attachment, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, FromPath(p))
		}
	}
	return out
}
