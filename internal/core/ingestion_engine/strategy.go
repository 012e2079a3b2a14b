package ingestion_engine

import (
	"path"
	"strings"
)

// Strategy is the extraction method chosen for a document.
type Strategy int

const (
	StrategyPlainText Strategy = iota
	StrategyOCR
	StrategyTranscription
	StrategyDocument
)

func (s Strategy) String() string {
	switch s {
	case StrategyOCR:
		return "ocr"
	case StrategyTranscription:
		return "transcription"
	case StrategyDocument:
		return "document"
	default:
		return "plain_text"
	}
}

// MediaKind classifies a document for moderation and key naming.
type MediaKind int

const (
	KindDocument MediaKind = iota
	KindImage
	KindAudio
	KindVideo
)

const octetStream = "application/octet-stream"

var audioExtensions = map[string]bool{
	"mp3": true, "wav": true, "flac": true, "ogg": true, "m4a": true, "amr": true, "aac": true,
}

var videoExtensions = map[string]bool{
	"mp4": true, "webm": true, "mov": true, "mkv": true, "avi": true,
}

// documentTypes are parsed locally by a core.DocumentParser.
var documentTypes = map[string]bool{
	"application/pdf": true,
	"text/csv":        true,
	"application/vnd.ms-excel":                                                true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/msword":                                                      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Classify resolves the media kind from the MIME type, falling back to the key's
// extension only for octet-stream uploads.
func Classify(contentType, key string) MediaKind {
	ct := normalizeContentType(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case ct == octetStream:
		ext := Extension(key)
		if audioExtensions[ext] {
			return KindAudio
		}
		if videoExtensions[ext] {
			return KindVideo
		}
		return KindDocument
	case strings.HasPrefix(ct, "audio/"):
		return KindAudio
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}

// ResolveStrategy picks the extraction strategy for a document. It is pure so the
// whole dispatch table can be exercised without collaborators.
func ResolveStrategy(contentType, key string) Strategy {
	switch Classify(contentType, key) {
	case KindImage:
		return StrategyOCR
	case KindAudio, KindVideo:
		return StrategyTranscription
	}
	if documentTypes[normalizeContentType(contentType)] {
		return StrategyDocument
	}
	return StrategyPlainText
}

// Extension returns the lower-case extension of key without the dot.
func Extension(key string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
}

// normalizeContentType drops parameters such as "; charset=utf-8".
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
