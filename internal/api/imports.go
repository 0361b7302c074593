package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

const maxImportBytes = 1 << 20

// importName validates an uploaded outline filename and returns the
// subject name: the base name without its .txt or .md extension.
func importName(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(filename)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	ext := strings.ToLower(filepath.Ext(cleaned))
	if ext != ".txt" && ext != ".md" {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	name := strings.TrimSpace(strings.TrimSuffix(cleaned, filepath.Ext(cleaned)))
	if name == "" {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	return name, nil
}

// ImportSubject handles POST /api/subjects/import (multipart/form-data,
// field "file"). The file body is parsed as a fresh outline.
func (h *Handler) ImportSubject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := importName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	body, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	d, err := h.svc.Create(r.Context(), ownerFrom(r.Context()), name, string(body))
	if err != nil {
		writeError(w, "import subject", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
