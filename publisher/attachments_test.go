package publisher

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAttachmentsKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	doc := filepath.Join(dir, "chapter.pdf")
	require.NoError(t, os.WriteFile(cover, []byte("img"), 0644))
	require.NoError(t, os.WriteFile(doc, []byte("pdf"), 0644))

	set, err := openAttachments(cover, []string{doc})
	require.NoError(t, err)
	defer set.Close()

	require.Len(t, set.files, 2)
	assert.Equal(t, "cover.png", set.files[0].Name)
	assert.Equal(t, "chapter.pdf", set.files[1].Name)
	assert.Equal(t, "image/png", set.files[0].ContentType)
	assert.Equal(t, "application/pdf", set.files[1].ContentType)

	data, err := io.ReadAll(set.files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

func TestOpenAttachmentsMissingFileClosesOpenedHandles(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	require.NoError(t, os.WriteFile(cover, []byte("img"), 0644))

	set, err := openAttachments(cover, []string{filepath.Join(dir, "missing.pdf")})
	var notFound *AttachmentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(dir, "missing.pdf"), notFound.Path)
	assert.Nil(t, set, "a partial set must never be handed out")
}

func TestOpenAttachmentsMissingParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "cover.png")

	set, err := openAttachments(path, nil)
	var notFound *AttachmentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, path, notFound.Path)
	assert.Nil(t, set)
}

func TestOpenAttachmentsNoFiles(t *testing.T) {
	set, err := openAttachments("", nil)
	require.NoError(t, err)
	assert.Empty(t, set.files)
	set.Close()
}

func TestAttachmentSetCloseIsIdempotent(t *testing.T) {
	cover := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(cover, []byte("img"), 0644))

	set, err := openAttachments(cover, nil)
	require.NoError(t, err)

	handle := set.handles[0]
	set.Close()
	set.Close()

	// The handle must actually be closed after the first Close.
	_, err = handle.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenAttachmentsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.weird-ext")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	set, err := openAttachments("", []string{path})
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(t, "application/octet-stream", set.files[0].ContentType)
}
