package handler

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/ingest"
)

const (
	maxDocumentUpload = 10 << 20 // 10MB
	maxAudioUpload    = 25 << 20 // 25MB, Whisper's limit
)

type IngestHandler struct {
	Docs        *ingest.Service
	Transcriber ingest.Transcriber
	Logger      *zap.Logger
}

func formFile(r *http.Request, field string, limit int64) (io.ReadCloser, string, int64, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", 0, apperr.Wrap(apperr.KindValidation, "Invalid multipart form", err)
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", 0, apperr.Validation("No " + field + " file provided")
	}
	return f, hdr.Filename, hdr.Size, nil
}

// ParseDocument extracts and stores memories from an uploaded document.
func (h *IngestHandler) ParseDocument(w http.ResponseWriter, r *http.Request) {
	f, filename, _, err := formFile(r, "file", maxDocumentUpload)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	defer f.Close()

	res, err := h.Docs.ParseDocument(r.Context(), f, filename)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"filename":          res.Filename,
		"memoriesExtracted": res.Extracted,
		"memoriesAdded":     res.Added,
		"memories":          res.Memories,
		"message": fmt.Sprintf("Successfully extracted and stored %d memories from %s",
			res.Added, res.Filename),
	})
}

// Transcribe forwards uploaded audio to the transcription API.
func (h *IngestHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	f, filename, _, err := formFile(r, "audio", maxAudioUpload)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	defer f.Close()

	text, err := ingest.TranscribeAudio(r.Context(), h.Transcriber, f, filename, h.Logger)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"transcription": text,
	})
}

// Upload reads a plain text file and echoes its content back, a helper
// for clients that want the raw text without memory extraction.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	f, filename, size, err := formFile(r, "file", maxDocumentUpload)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		writeError(w, h.Logger, apperr.Wrap(apperr.KindValidation, "Failed to read uploaded file", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"filename": filename,
		"size":     size,
		"content":  string(content),
		"message":  "File uploaded and processed successfully",
	})
}
