package mcpserver

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"codeberg.org/snonux/ankiform/internal/media"
)

const maxAttachmentSize = 20 << 20 // 20 MB

var mimeToExt = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/ogg":   ".ogg",
	"audio/mp4":   ".m4a",
	"image/png":   ".png",
	"image/jpeg":  ".jpg",
	"image/gif":   ".gif",
	"image/webp":  ".webp",
}

// attachmentFromDataURI turns a base64 data URI into an attachment named
// prefix_<uuid><ext>.
func attachmentFromDataURI(uri, prefix string) (media.Attachment, error) {
	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttachmentSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAttachmentSize)
	}
	return media.FromBytes(prefix+"_"+uuid.New().String()+ext, data), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing data: prefix")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[strings.ToLower(mime)]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}
