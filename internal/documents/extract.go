package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

// MaxUploadBytes caps a single notes file.
const MaxUploadBytes = 10 << 20

// Kind is the sniffed format of an uploaded notes file.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindHTML     Kind = "html"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
)

// File is one named blob to extract.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Extracted is the text pulled out of a File.
type Extracted struct {
	Name string
	Kind Kind
	Text string
}

// Sniff determines the format from the bytes first and falls back to the
// declared mime type and extension.
func Sniff(name, mimeType string, data []byte) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case isPDF(data):
		return KindPDF, nil
	case isZip(data):
		if hasZipPrefix(data, "word/") {
			return KindDOCX, nil
		}
		return "", fmt.Errorf("%w: zip container is not a docx: %s", apperr.ErrInvalidArgument, name)
	case looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm":
		return KindHTML, nil
	}

	if mt == "application/pdf" || ext == ".pdf" {
		return "", fmt.Errorf("%w: %s claims pdf but has no %%PDF header (head=%s)", apperr.ErrInvalidArgument, name, headHex(data, 8))
	}
	if isProbablyText(data) {
		if ext == ".md" || ext == ".markdown" || mt == "text/markdown" {
			return KindMarkdown, nil
		}
		return KindText, nil
	}
	return "", fmt.Errorf("%w: unsupported file type: name=%s ext=%s mime=%s", apperr.ErrInvalidArgument, name, ext, mimeType)
}

// Extract returns the plain text of a notes file. Line structure is kept so
// headings and lists survive into the generation prompt.
func Extract(f File) (Extracted, error) {
	out := Extracted{Name: f.Name}
	if len(f.Data) == 0 {
		return out, fmt.Errorf("%w: empty file %s", apperr.ErrNoSourceContent, f.Name)
	}
	if len(f.Data) > MaxUploadBytes {
		return out, fmt.Errorf("%w: %s exceeds %d bytes", apperr.ErrInvalidArgument, f.Name, MaxUploadBytes)
	}
	kind, err := Sniff(f.Name, f.MimeType, f.Data)
	if err != nil {
		return out, err
	}
	out.Kind = kind

	var text string
	switch kind {
	case KindPDF:
		text, err = extractPDF(f.Data)
	case KindDOCX:
		text, err = extractDOCX(f.Data)
	case KindHTML:
		text = stripHTML(string(f.Data))
	default:
		text = normalize(string(f.Data))
	}
	if err != nil {
		return out, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if strings.TrimSpace(text) == "" {
		return out, fmt.Errorf("%w: no text in %s", apperr.ErrNoSourceContent, f.Name)
	}
	out.Text = text
	return out, nil
}

// ExtractAll extracts files concurrently, at most limit at a time. The result
// keeps input order. The first failure cancels the rest.
func ExtractAll(ctx context.Context, files []File, limit int) ([]Extracted, error) {
	if limit <= 0 {
		limit = 4
	}
	out := make([]Extracted, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range files {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ex, err := Extract(files[i])
			if err != nil {
				return err
			}
			out[i] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func hasZipPrefix(data []byte, prefix string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) {
			return true
		}
	}
	return false
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(b[:min(len(b), 2048)])))
	if strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") {
		return true
	}
	return strings.Contains(s, "<html") && strings.Contains(s, "</html>")
}

func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	if len(sample) == 0 {
		return false
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func headHex(b []byte, n int) string {
	return fmt.Sprintf("%x", b[:min(len(b), n)])
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return normalize(string(b)), nil
}

// extractDOCX gathers <w:t> runs from word/document.xml, one line per <w:p>.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx: missing word/document.xml")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					sb.WriteString(v)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		}
	}
	return normalize(sb.String()), nil
}

var (
	htmlDropRe  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlBlockRe = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|tr)[^>]*>`)
	htmlTagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
)

func stripHTML(s string) string {
	s = htmlDropRe.ReplaceAllString(s, "")
	s = htmlBlockRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(s)
	return normalize(s)
}

// normalize collapses runs of spaces inside lines and runs of blank lines,
// keeping paragraph breaks.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
