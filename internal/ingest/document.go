// Package ingest covers uploaded files: memory extraction from documents
// and audio transcription. Temp files are scoped resources, removed on
// every exit path.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/llm"
	"github.com/Strongman1380/myassistant/internal/memory"
)

const (
	// documentByteBudget caps how much of an uploaded document reaches
	// the model.
	documentByteBudget = 15000

	// documentBatchTimeout bounds the whole extract-and-classify batch.
	documentBatchTimeout = 60 * time.Second
)

// MemoryAdder is the slice of the memory service the document flow needs.
type MemoryAdder interface {
	Add(ctx context.Context, rawInput string) (*memory.Memory, int64, error)
}

// Completer matches the LLM gateway's free-text mode.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

type Service struct {
	Memories MemoryAdder
	LLM      Completer
	Logger   *zap.Logger
}

// DocumentResult reports the batch outcome. Extracted counts candidates
// the model found; Added counts the ones that survived classification.
type DocumentResult struct {
	Filename  string          `json:"filename"`
	Extracted int             `json:"memoriesExtracted"`
	Added     int             `json:"memoriesAdded"`
	Memories  []memory.Memory `json:"memories"`
}

type extraction struct {
	Memories []string `json:"memories"`
}

// ParseDocument extracts candidate memory statements from the document
// and classifies each through the normal memory-add path. A failure on
// one candidate never aborts its siblings; it is logged and counted.
func (s *Service) ParseDocument(ctx context.Context, doc io.Reader, filename string) (*DocumentResult, error) {
	content, err := io.ReadAll(io.LimitReader(doc, documentByteBudget))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Failed to read uploaded document", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, apperr.Validation("Uploaded document is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, documentBatchTimeout)
	defer cancel()

	raw, err := s.LLM.Complete(ctx, llm.DocumentExtractPrompt, "Document content:\n"+string(content))
	if err != nil {
		return nil, err
	}

	var extracted extraction
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &extracted); err != nil {
		s.Logger.Error("document extraction returned invalid json", zap.String("raw", raw), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "AI did not return valid JSON", err)
	}

	result := &DocumentResult{
		Filename: filename,
		Memories: []memory.Memory{},
	}
	for _, candidate := range extracted.Memories {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		result.Extracted++

		m, _, err := s.Memories.Add(ctx, candidate)
		if err != nil {
			s.Logger.Warn("failed to store extracted memory",
				zap.String("candidate", candidate), zap.Error(err))
			continue
		}
		result.Added++
		result.Memories = append(result.Memories, *m)
	}
	return result, nil
}

// extractJSONObject strips fences, then falls back to the outermost
// brace pair when the model padded the object with prose.
func extractJSONObject(raw string) string {
	s := llm.StripFences(raw)
	if json.Valid([]byte(s)) {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
