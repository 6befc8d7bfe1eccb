package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Transcriber matches the LLM gateway's Whisper call.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// TranscribeAudio spools the upload to a temp file and forwards it to the
// transcription API. The temp file is removed whether the call succeeds
// or fails.
func TranscribeAudio(ctx context.Context, t Transcriber, audio io.Reader, filename string, logger *zap.Logger) (string, error) {
	tmp, err := os.CreateTemp("", "assistant-audio-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			logger.Warn("failed to remove temp audio file", zap.String("path", tmp.Name()), zap.Error(err))
		}
	}()

	if _, err := io.Copy(tmp, audio); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return t.Transcribe(ctx, tmp, filename)
}
