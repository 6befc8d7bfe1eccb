package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/memory"
)

type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.lastUser = user
	return f.response, f.err
}

type fakeAdder struct {
	failOn map[string]bool
	added  []string
}

func (f *fakeAdder) Add(_ context.Context, rawInput string) (*memory.Memory, int64, error) {
	if f.failOn[rawInput] {
		return nil, 0, errors.New("classification failed")
	}
	f.added = append(f.added, rawInput)
	return &memory.Memory{ID: fmt.Sprintf("id-%d", len(f.added)), Content: rawInput, IsActive: true}, int64(len(f.added)), nil
}

func TestParseDocumentStoresEachCandidate(t *testing.T) {
	llm := &fakeCompleter{response: `{"memories":["Brandon was born in 1990","Brandon works at Acme","Brandon likes coffee"]}`}
	adder := &fakeAdder{}
	svc := &Service{Memories: adder, LLM: llm, Logger: zap.NewNop()}

	res, err := svc.ParseDocument(context.Background(), strings.NewReader("a biography"), "bio.txt")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 3, res.Added)
	assert.Len(t, res.Memories, 3)
	assert.Equal(t, "bio.txt", res.Filename)
	assert.Contains(t, llm.lastUser, "a biography")
}

func TestParseDocumentPartialFailureContinues(t *testing.T) {
	llm := &fakeCompleter{response: `{"memories":["fact one","fact two","fact three"]}`}
	adder := &fakeAdder{failOn: map[string]bool{"fact two": true}}
	svc := &Service{Memories: adder, LLM: llm, Logger: zap.NewNop()}

	res, err := svc.ParseDocument(context.Background(), strings.NewReader("doc"), "doc.txt")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, []string{"fact one", "fact three"}, adder.added)
}

func TestParseDocumentCapsContent(t *testing.T) {
	llm := &fakeCompleter{response: `{"memories":[]}`}
	svc := &Service{Memories: &fakeAdder{}, LLM: llm, Logger: zap.NewNop()}

	big := strings.Repeat("x", documentByteBudget+5000)
	_, err := svc.ParseDocument(context.Background(), strings.NewReader(big), "big.txt")
	require.NoError(t, err)
	// Prefix plus the budget, nothing more.
	assert.LessOrEqual(t, len(llm.lastUser), documentByteBudget+len("Document content:\n"))
}

func TestParseDocumentExtractsEmbeddedJSON(t *testing.T) {
	llm := &fakeCompleter{response: "Here is what I found:\n{\"memories\":[\"one fact\"]}\nHope that helps!"}
	adder := &fakeAdder{}
	svc := &Service{Memories: adder, LLM: llm, Logger: zap.NewNop()}

	res, err := svc.ParseDocument(context.Background(), strings.NewReader("doc"), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}

func TestParseDocumentRejectsEmpty(t *testing.T) {
	svc := &Service{Memories: &fakeAdder{}, LLM: &fakeCompleter{}, Logger: zap.NewNop()}
	_, err := svc.ParseDocument(context.Background(), strings.NewReader("   "), "empty.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestParseDocumentMalformedExtraction(t *testing.T) {
	llm := &fakeCompleter{response: "no json at all"}
	svc := &Service{Memories: &fakeAdder{}, LLM: llm, Logger: zap.NewNop()}

	_, err := svc.ParseDocument(context.Background(), strings.NewReader("doc"), "doc.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid JSON")
}

type fakeTranscriber struct {
	text     string
	err      error
	received string
	filename string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, filename string) (string, error) {
	raw, _ := io.ReadAll(audio)
	f.received = string(raw)
	f.filename = filename
	return f.text, f.err
}

func tempFileCount(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "assistant-audio-*"))
	require.NoError(t, err)
	return len(matches)
}

func TestTranscribeAudioForwardsPayload(t *testing.T) {
	before := tempFileCount(t)
	ft := &fakeTranscriber{text: "hello there"}

	out, err := TranscribeAudio(context.Background(), ft, strings.NewReader("audio-bytes"), "clip.webm", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, "audio-bytes", ft.received)
	assert.Equal(t, "clip.webm", ft.filename)
	assert.Equal(t, before, tempFileCount(t), "temp file removed on success")
}

func TestTranscribeAudioCleansUpOnFailure(t *testing.T) {
	before := tempFileCount(t)
	ft := &fakeTranscriber{err: errors.New("whisper down")}

	_, err := TranscribeAudio(context.Background(), ft, strings.NewReader("audio-bytes"), "clip.webm", zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, before, tempFileCount(t), "temp file removed on failure")
}
