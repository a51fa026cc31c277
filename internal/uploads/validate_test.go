package uploads

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-bridge/internal/models"
)

func TestKind(t *testing.T) {
	kind, ok := Kind("Photo.JPG")
	require.True(t, ok)
	assert.Equal(t, "image", kind)

	kind, ok = Kind("report.pdf")
	require.True(t, ok)
	assert.Equal(t, "document", kind)

	_, ok = Kind("malware.exe")
	assert.False(t, ok)
	_, ok = Kind("noextension")
	assert.False(t, ok)
}

func TestValidateAcceptsGoodBatch(t *testing.T) {
	err := Validate([]models.FileUpload{
		{Name: "a.png", Content: []byte("img")},
		{Name: "b.xlsx", Content: []byte("sheet")},
	})
	assert.NoError(t, err)
	assert.NoError(t, Validate(nil))
}

func TestValidateRejectsOversizedBatch(t *testing.T) {
	files := make([]models.FileUpload, MaxBatchSize+1)
	for i := range files {
		files[i] = models.FileUpload{Name: "a.png", Content: []byte("x")}
	}
	assert.ErrorIs(t, Validate(files), ErrTooManyFiles)
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	err := Validate([]models.FileUpload{
		{Name: "big.pdf", Content: bytes.Repeat([]byte("x"), MaxFileSize+1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "big.pdf: exceeds the 10MB limit")
}

func TestValidateCollectsProblemsAndCollapsesTail(t *testing.T) {
	err := Validate([]models.FileUpload{
		{Name: "a.exe", Content: []byte("x")},
		{Name: "b.sh", Content: []byte("x")},
		{Name: "c.png"},
		{Name: "d.bat", Content: []byte("x")},
		{Name: "e.com", Content: []byte("x")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.exe: unsupported file type")
	assert.Contains(t, err.Error(), "c.png: file is empty")
	assert.Contains(t, err.Error(), "and 2 more")
	assert.NotContains(t, err.Error(), "e.com")
}
