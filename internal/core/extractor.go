package core

import (
	"context"
)

// DocumentParser extracts text from document formats (PDF, Word, spreadsheets, CSV) locally.
// It returns "" rather than an error when the document simply has no text.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, contentType string) (string, error)
}
