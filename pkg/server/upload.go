package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
	"golang.org/x/text/unicode/norm"
)

const defaultFilename = "uploaded_file"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// sanitizeFilename reduces a client supplied name to a safe ASCII base name.
// Accented letters are decomposed and keep their base letter.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, norm.NFKD.String(name))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return defaultFilename
	}
	return name
}

func (s *Server) handleUploadDoc(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		logger.Warn("upload has no file part", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No selected file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Warn("failed to read upload", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	doc := &model.Document{
		Filename:    sanitizeFilename(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	logger.Info("processing upload", "filename", doc.Filename, "bytes", len(data))

	analysis, err := s.uc.AnalyzeDocument(r.Context(), doc)
	if err != nil {
		writeError(w, r, err, "AI analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
