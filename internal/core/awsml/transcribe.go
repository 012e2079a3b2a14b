package awsml

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

const transcriptPrefix = "transcripts/"

type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// Transcriber runs AWS Transcribe jobs that write their JSON output back into
// the artifact bucket under transcripts/<job>.json.
type Transcriber struct {
	api   transcribeAPI
	store core.ObjectClient
}

var _ core.Transcriber = (*Transcriber)(nil)

func NewTranscriber(cfg aws.Config, store core.ObjectClient) *Transcriber {
	return &Transcriber{api: transcribe.NewFromConfig(cfg), store: store}
}

func (t *Transcriber) StartJob(ctx context.Context, ref core.ObjectRef, mediaFormat string) (string, error) {
	name := "contexta-" + uuid.NewString()
	in := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		Media:                &types.Media{MediaFileUri: aws.String(ref.URI())},
		IdentifyLanguage:     aws.Bool(true),
		OutputBucketName:     aws.String(ref.Bucket),
		OutputKey:            aws.String(transcriptKey(name)),
	}
	if f, ok := mediaFormatHint(mediaFormat); ok {
		in.MediaFormat = f
	}

	if _, err := t.api.StartTranscriptionJob(ctx, in); err != nil {
		return "", fmt.Errorf("transcribe start job: %w", err)
	}
	return name, nil
}

func (t *Transcriber) PollJob(ctx context.Context, handle string) (core.TranscriptPoll, error) {
	out, err := t.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(handle),
	})
	if err != nil {
		return core.TranscriptPoll{}, fmt.Errorf("transcribe get job: %w", err)
	}
	job := out.TranscriptionJob
	if job == nil {
		return core.TranscriptPoll{Status: core.JobStatusInProgress}, nil
	}

	poll := core.TranscriptPoll{Reason: aws.ToString(job.FailureReason)}
	switch job.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		poll.Status = core.JobStatusCompleted
		poll.TranscriptRef = transcriptKey(handle)
	case types.TranscriptionJobStatusFailed:
		poll.Status = core.JobStatusFailed
	default:
		poll.Status = core.JobStatusInProgress
	}
	return poll, nil
}

func (t *Transcriber) FetchTranscript(ctx context.Context, transcriptRef string) (string, error) {
	raw, err := t.store.Get(ctx, transcriptRef)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	return parseTranscript(raw)
}

// transcriptDoc mirrors the parts of the Transcribe output JSON we read.
type transcriptDoc struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func parseTranscript(raw []byte) (string, error) {
	var doc transcriptDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	parts := make([]string, 0, len(doc.Results.Transcripts))
	for _, tr := range doc.Results.Transcripts {
		if s := strings.TrimSpace(tr.Transcript); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// mediaFormatHint returns the Transcribe format for ext when the service accepts
// it. Other containers are left for Transcribe to detect.
func mediaFormatHint(ext string) (types.MediaFormat, bool) {
	f := types.MediaFormat(strings.ToLower(strings.TrimPrefix(ext, ".")))
	if f == "" || !slices.Contains(f.Values(), f) {
		return "", false
	}
	return f, true
}

func transcriptKey(job string) string {
	return transcriptPrefix + job + ".json"
}
