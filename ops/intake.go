package ops

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxUploadBytes is the default limit on uploaded content size (5 MiB).
const MaxUploadBytes int64 = 5 * 1024 * 1024

// ParseCandidates splits raw upload content into candidate addresses.
//
// Tokens are separated by newlines or commas, trimmed of surrounding
// whitespace, and dropped if empty. Order and duplicates are preserved.
// Returns ErrNoCandidates if nothing remains.
func ParseCandidates(raw string) ([]string, error) {
	tokens := strings.FieldsFunc(raw, func(c rune) bool {
		return c == '\n' || c == ','
	})
	candidates := make([]string, 0, len(tokens))

	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			candidates = append(candidates, token)
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// ReadCandidates reads at most maxBytes from r and parses the result with
// ParseCandidates.
//
// Content larger than maxBytes is rejected with ErrFileTooLarge before any
// parsing happens.
func ReadCandidates(r io.Reader, maxBytes int64) ([]string, error) {
	content, err := ReadLimited(r, maxBytes)

	if errors.Is(err, ErrFileTooLarge) {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("failed to read uploaded content: %w", err)
	}
	return ParseCandidates(string(content))
}

// ReadLimited reads all of r, returning ErrFileTooLarge as soon as it finds
// more than maxBytes. Read errors are returned unwrapped.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxBytes+1))

	if err != nil {
		return nil, err
	} else if int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, maxBytes)
	}
	return content, nil
}
