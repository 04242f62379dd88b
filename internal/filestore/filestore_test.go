package filestore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"procurement/internal/apperr"
)

func TestSaveAndReadRoundtrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	name := store.StoredName(3, "proposal.pdf")
	path, err := store.Save(name, []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, store.Dir()))

	data, err := store.Read(path)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 fake"), data)
}

func TestReadMissingFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(filepath.Join(store.Dir(), "no-such-file.pdf"))
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestReadOutsideUploadDir(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{
		"/etc/passwd",
		filepath.Join(store.Dir(), "..", "escape.pdf"),
	} {
		_, err := store.Read(path)
		require.Error(t, err)
		require.Equal(t, apperr.NotFound, apperr.KindOf(err))
	}
}

func TestRemove(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("bid_1_doc.pdf", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Remove(path))

	_, err = store.Read(path)
	require.Error(t, err)

	// removing twice and removing outside the dir are both no-ops
	require.NoError(t, store.Remove(path))
	require.NoError(t, store.Remove("/etc/passwd"))
}

func TestStoredNameSanitizesOriginal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	name := store.StoredName(9, "../../etc/pass wd.pdf")
	require.True(t, strings.HasPrefix(name, "bid_9_"))
	require.NotContains(t, name, "/")
	require.NotContains(t, name, "..")
	require.NotContains(t, name, " ")
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"proposal.pdf":         "proposal.pdf",
		"../../etc/passwd":     "passwd",
		`..\..\windows\sys.doc`: "sys.doc",
		"my report (v2).pdf":   "my_report__v2_.pdf",
		"???":                  "file",
	}
	for in, want := range cases {
		require.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.JPG", "c.docx", "d.png"} {
		require.True(t, AllowedExtension(name), name)
	}
	for _, name := range []string{"a.exe", "b.sh", "c", "d.pdf.exe"} {
		require.False(t, AllowedExtension(name), name)
	}
}
