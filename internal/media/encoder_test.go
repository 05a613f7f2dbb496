package media

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeNil(t *testing.T) {
	enc, err := NewEncoder(nil).Encode(nil)
	require.NoError(t, err)
	require.Nil(t, enc)
}

func TestEncodeBytes(t *testing.T) {
	e := NewEncoder(nil)
	enc, err := e.Encode(FromBytes("word audio.mp3", []byte("ID3 fake")))
	require.NoError(t, err)
	require.Equal(t, "_word_audio.mp3", enc.Filename)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("ID3 fake")), enc.Data)
	require.EqualValues(t, 8, enc.Size)

	again, err := e.Encode(FromBytes("word audio.mp3", []byte("ID3 fake")))
	require.NoError(t, err)
	require.Equal(t, enc, again)
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644))

	enc, err := NewEncoder(nil).Encode(FromPath(path))
	require.NoError(t, err)
	require.Equal(t, "_cat.png", enc.Filename)

	p, ok := Path(FromPath(path))
	require.True(t, ok)
	require.Equal(t, path, p)
}

func TestEncodeTooLarge(t *testing.T) {
	e := NewEncoder(&Config{MaxBytes: 4, Prefix: "_"})
	_, err := e.Encode(FromBytes("big.bin", []byte("12345")))

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, "big.bin", encErr.Name)
	require.True(t, errors.Is(err, ErrTooLarge))

	enc, err := e.Encode(FromBytes("ok.bin", []byte("1234")))
	require.NoError(t, err)
	require.EqualValues(t, 4, enc.Size)
}

func TestEncodeAllContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(good, []byte("jpeg"), 0644))

	out, err := NewEncoder(nil).EncodeAll([]Attachment{
		FromPath(filepath.Join(dir, "missing.jpg")),
		FromPath(good),
		FromBytes("b.jpg", []byte("more")),
	})

	require.Error(t, err)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, "missing.jpg", encErr.Name)

	require.Len(t, out, 2)
	require.Equal(t, "_a.jpg", out[0].Filename)
	require.Equal(t, "_b.jpg", out[1].Filename)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ябълка.mp3", want: "ябълка.mp3"},
		{in: `C:\Users\me\clip one.wav`, want: "clip_one.wav"},
		{in: "/tmp/x/<script>.png", want: "_script_.png"},
		{in: `quote".jpg`, want: "quote_.jpg"},
		{in: "", want: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestFromPaths(t *testing.T) {
	got := FromPaths("a.png", "", "b.png")
	require.Len(t, got, 2)
	require.Equal(t, "b.png", got[1].Name())
}
