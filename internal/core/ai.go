package core

import "context"

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// TextDetector runs OCR against a stored image.
type TextDetector interface {
	DetectText(ctx context.Context, ref ObjectRef) (string, error)
}

// Transcriber drives an out-of-process speech-to-text job.
type Transcriber interface {
	StartJob(ctx context.Context, ref ObjectRef, mediaFormat string) (string, error)
	PollJob(ctx context.Context, handle string) (TranscriptPoll, error)
	// FetchTranscript reads the finished transcript as plain text.
	FetchTranscript(ctx context.Context, transcriptRef string) (string, error)
}

// ContentModerator detects unsafe labels in images and videos.
type ContentModerator interface {
	DetectUnsafeLabels(ctx context.Context, image []byte, minConfidence float64) ([]string, error)
	StartModerationJob(ctx context.Context, ref ObjectRef, minConfidence float64) (string, error)
	PollModerationJob(ctx context.Context, handle string) (ModerationPoll, error)
}

// JobStatus is the normalized state of an external job.
type JobStatus string

const (
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Done reports a successful terminal state.
func (s JobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusSucceeded
}

type TranscriptPoll struct {
	Status        JobStatus
	TranscriptRef string
	Reason        string
}

type ModerationPoll struct {
	Status JobStatus
	Labels []string
	Reason string
}
