package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// buildDOCX writes a minimal archive with the given parts.
func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func document(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t,
		[]string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	content := buildDOCX(t, map[string]string{
		"word/document.xml": document(
			`<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>` +
				`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>column</w:t></w:r></w:p>` +
				`<w:p></w:p>` +
				`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`),
		"docProps/core.xml": `<cp:coreProperties xmlns:cp="c" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
			`<dc:title> Travel Policy </dc:title></cp:coreProperties>`,
	})

	got, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "/policy.docx", Content: content})

	require.NoError(t, err)
	assert.Equal(t, "Travel Policy", got.Title)
	assert.Equal(t, "Hello World\nSecond\tcolumn\nCell", got.Text)
	assert.Equal(t, Format, got.Format)
}

func TestNormalise_TitleFallsBackToFileName(t *testing.T) {
	content := buildDOCX(t, map[string]string{
		"word/document.xml": document(`<w:p><w:r><w:t>Body</w:t></w:r></w:p>`),
	})

	got, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "/team_notes.docx", Content: content})

	require.NoError(t, err)
	assert.Equal(t, "team notes", got.Title)
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("plain text pretending to be docx")},
		{"missing document part", buildDOCX(t, map[string]string{"docProps/core.xml": "<x/>"})},
		{"malformed xml", buildDOCX(t, map[string]string{"word/document.xml": "<w:document><w:body>"})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "/x.docx", Content: tc.content})

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, got)
		})
	}

	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
