package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

func TestExtract_TextAndMarkdown(t *testing.T) {
	ex, err := Extract(File{Name: "bio.txt", Data: []byte("Photosynthesis   happens\r\n\r\n\r\nin   chloroplasts\n")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Kind != KindText {
		t.Fatalf("kind: want=%v got=%v", KindText, ex.Kind)
	}
	if want := "Photosynthesis happens\n\nin chloroplasts"; ex.Text != want {
		t.Fatalf("text: want=%q got=%q", want, ex.Text)
	}

	md, err := Extract(File{Name: "notes.md", MimeType: "text/markdown; charset=utf-8", Data: []byte("# Cells\n- nucleus\n- ribosome")})
	if err != nil {
		t.Fatalf("Extract md: %v", err)
	}
	if md.Kind != KindMarkdown {
		t.Fatalf("kind: want=%v got=%v", KindMarkdown, md.Kind)
	}
	if md.Text != "# Cells\n- nucleus\n- ribosome" {
		t.Fatalf("md text: got=%q", md.Text)
	}
}

func TestExtract_HTML(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>p{}</style></head><body><h1>Mitosis</h1><p>Prophase &amp; metaphase</p><script>x()</script></body></html>`
	ex, err := Extract(File{Name: "page.html", Data: []byte(page)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Kind != KindHTML {
		t.Fatalf("kind: want=%v got=%v", KindHTML, ex.Kind)
	}
	if want := "Mitosis\n\nProphase & metaphase"; ex.Text != want {
		t.Fatalf("text: want=%q got=%q", want, ex.Text)
	}
}

func TestExtract_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	_, _ = w.Write([]byte(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>First</w:t></w:r><w:r><w:t xml:space="preserve"> line</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	ex, err := Extract(File{Name: "notes.docx", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ex.Kind != KindDOCX {
		t.Fatalf("kind: want=%v got=%v", KindDOCX, ex.Kind)
	}
	if want := "First line\nSecond"; ex.Text != want {
		t.Fatalf("text: want=%q got=%q", want, ex.Text)
	}
}

func TestExtract_Rejects(t *testing.T) {
	cases := []struct {
		name string
		file File
		want error
	}{
		{"empty", File{Name: "a.txt"}, apperr.ErrNoSourceContent},
		{"whitespace", File{Name: "a.txt", Data: []byte(" \n\t ")}, apperr.ErrNoSourceContent},
		{"binary", File{Name: "a.bin", Data: []byte{0x00, 0x01, 0x02, 0xff}}, apperr.ErrInvalidArgument},
		{"fake pdf", File{Name: "a.pdf", MimeType: "application/pdf", Data: []byte{0x00, 'x'}}, apperr.ErrInvalidArgument},
		{"too large", File{Name: "a.txt", Data: bytes.Repeat([]byte("a"), MaxUploadBytes+1)}, apperr.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.file)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err: want=%v got=%v", tc.want, err)
			}
		})
	}
}

func TestExtractAll_KeepsOrder(t *testing.T) {
	files := []File{
		{Name: "one.txt", Data: []byte("alpha")},
		{Name: "two.md", Data: []byte("beta")},
		{Name: "three.txt", Data: []byte("gamma")},
	}
	got, err := ExtractAll(context.Background(), files, 2)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	for i := range want {
		if got[i].Name != files[i].Name || got[i].Text != want[i] {
			t.Fatalf("item %d: want=%s/%s got=%s/%s", i, files[i].Name, want[i], got[i].Name, got[i].Text)
		}
	}
}

func TestExtractAll_FailsOnAnyError(t *testing.T) {
	files := []File{
		{Name: "ok.txt", Data: []byte("alpha")},
		{Name: "bad.txt"},
	}
	if _, err := ExtractAll(context.Background(), files, 0); !errors.Is(err, apperr.ErrNoSourceContent) {
		t.Fatalf("err: want=%v got=%v", apperr.ErrNoSourceContent, err)
	}
}
