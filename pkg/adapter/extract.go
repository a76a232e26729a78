package adapter

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
)

// IsPDF reports whether an upload should go through PDF extraction. The file
// extension wins; the declared content type is the fallback.
func IsPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/pdf"
}

// ExtractText turns an uploaded document into plain text. PDFs are parsed,
// everything else must be valid UTF-8. Failures wrap model.ErrExtraction.
func ExtractText(doc *model.Document) (string, error) {
	if IsPDF(doc.Filename, doc.ContentType) {
		return extractPDF(doc.Data)
	}

	if !utf8.Valid(doc.Data) {
		return "", goerr.Wrap(model.ErrExtraction, "file is not valid UTF-8", goerr.V("filename", doc.Filename))
	}
	return strings.TrimPrefix(string(doc.Data), "\ufeff"), nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = goerr.Wrap(model.ErrExtraction, "pdf parser panicked", goerr.V("panic", fmt.Sprint(r)))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(model.ErrExtraction, "failed to open pdf", goerr.V("cause", err.Error()))
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", goerr.Wrap(model.ErrExtraction, "failed to read pdf page", goerr.V("page", i), goerr.V("cause", err.Error()))
		}
		if content != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, "\n"), nil
}
