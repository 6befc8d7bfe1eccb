package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/ingest"
	"github.com/Strongman1380/myassistant/internal/memory"
)

// fakeAdder stores raw inputs without touching a database or LLM.
type fakeAdder struct {
	added []string
}

func (f *fakeAdder) Add(_ context.Context, rawInput string) (*memory.Memory, int64, error) {
	f.added = append(f.added, rawInput)
	return &memory.Memory{ID: "m-1", Content: rawInput, RawInput: rawInput}, int64(len(f.added)), nil
}

type fakeTranscriber struct {
	text string
	err  error
	got  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, filename string) (string, error) {
	b, _ := io.ReadAll(audio)
	f.got = string(b)
	return f.text, f.err
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func testIngestHandler(gw *fakeGateway, adder *fakeAdder, tr *fakeTranscriber) *IngestHandler {
	return &IngestHandler{
		Docs:        &ingest.Service{Memories: adder, LLM: gw, Logger: zap.NewNop()},
		Transcriber: tr,
		Logger:      zap.NewNop(),
	}
}

func TestParseDocumentStoresExtractedMemories(t *testing.T) {
	gw := &fakeGateway{completeResponse: `{"memories":["Prefers tea over coffee","Works from home on Fridays"]}`}
	adder := &fakeAdder{}
	h := testIngestHandler(gw, adder, &fakeTranscriber{})

	body, ctype := multipartBody(t, "file", "notes.txt", "some meeting notes")
	req := httptest.NewRequest(http.MethodPost, "/memory/parse-document", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ParseDocument(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "notes.txt", out["filename"])
	assert.Equal(t, float64(2), out["memoriesExtracted"])
	assert.Equal(t, float64(2), out["memoriesAdded"])
	assert.Equal(t, "Successfully extracted and stored 2 memories from notes.txt", out["message"])
	assert.Equal(t, []string{"Prefers tea over coffee", "Works from home on Fridays"}, adder.added)
}

func TestParseDocumentRequiresFile(t *testing.T) {
	h := testIngestHandler(&fakeGateway{}, &fakeAdder{}, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/memory/parse-document", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rec := httptest.NewRecorder()
	h.ParseDocument(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscribeReturnsText(t *testing.T) {
	tr := &fakeTranscriber{text: "remember to call the dentist"}
	h := testIngestHandler(&fakeGateway{}, &fakeAdder{}, tr)

	body, ctype := multipartBody(t, "audio", "note.webm", "fake-audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/whisper/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "remember to call the dentist", out["transcription"])
	assert.Equal(t, "fake-audio-bytes", tr.got)
}

func TestTranscribeRequiresAudioField(t *testing.T) {
	h := testIngestHandler(&fakeGateway{}, &fakeAdder{}, &fakeTranscriber{})

	// Right form, wrong field name.
	body, ctype := multipartBody(t, "file", "note.webm", "fake-audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/whisper/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No audio file provided", decodeBody(t, rec)["error"])
}

func TestUploadEchoesContent(t *testing.T) {
	h := testIngestHandler(&fakeGateway{}, &fakeAdder{}, &fakeTranscriber{})

	body, ctype := multipartBody(t, "file", "notes.txt", "plain text body")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "notes.txt", out["filename"])
	assert.Equal(t, "plain text body", out["content"])
	assert.Equal(t, float64(len("plain text body")), out["size"])
}
