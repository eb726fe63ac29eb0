// Package ai wraps the hosted language model used for lab, imaging and
// prescription analysis, medical advice and voice dictation parsing.
//
// Every call is fallible and nondeterministic. Callers own the fallback
// behavior; nothing in this package retries.
package ai

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotConfigured = errors.New("ai: no API key configured")
	ErrEmptyResponse = errors.New("ai: model returned no choices")
)

// Analyzer sends text or an image to the model and returns its reply.
type Analyzer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	// DescribeImage sends a base64 JPEG/PNG payload together with prompt.
	DescribeImage(ctx context.Context, prompt, imageB64 string) (string, error)
}

// Transcriber turns recorded audio into English text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}
