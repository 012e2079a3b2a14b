package awsml

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// rekognitionAPI is the subset of the Rekognition client used here.
type rekognitionAPI interface {
	DetectText(ctx context.Context, in *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
	DetectModerationLabels(ctx context.Context, in *rekognition.DetectModerationLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error)
	StartContentModeration(ctx context.Context, in *rekognition.StartContentModerationInput, optFns ...func(*rekognition.Options)) (*rekognition.StartContentModerationOutput, error)
	GetContentModeration(ctx context.Context, in *rekognition.GetContentModerationInput, optFns ...func(*rekognition.Options)) (*rekognition.GetContentModerationOutput, error)
}

// Rekognition provides OCR and image/video moderation.
type Rekognition struct {
	api rekognitionAPI
}

var (
	_ core.TextDetector     = (*Rekognition)(nil)
	_ core.ContentModerator = (*Rekognition)(nil)
)

func NewRekognition(cfg aws.Config) *Rekognition {
	return &Rekognition{api: rekognition.NewFromConfig(cfg)}
}

// DetectText returns the detected LINE texts joined by newlines.
func (r *Rekognition) DetectText(ctx context.Context, ref core.ObjectRef) (string, error) {
	out, err := r.api.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{S3Object: s3Object(ref)},
	})
	if err != nil {
		return "", fmt.Errorf("rekognition detect text: %w", err)
	}

	lines := make([]string, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil {
			continue
		}
		lines = append(lines, aws.ToString(td.DetectedText))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Rekognition) DetectUnsafeLabels(ctx context.Context, image []byte, minConfidence float64) ([]string, error) {
	out, err := r.api.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: image},
		MinConfidence: aws.Float32(float32(minConfidence)),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels: %w", err)
	}

	labels := make([]string, 0, len(out.ModerationLabels))
	for _, l := range out.ModerationLabels {
		labels = append(labels, aws.ToString(l.Name))
	}
	return labels, nil
}

func (r *Rekognition) StartModerationJob(ctx context.Context, ref core.ObjectRef, minConfidence float64) (string, error) {
	out, err := r.api.StartContentModeration(ctx, &rekognition.StartContentModerationInput{
		Video:         &types.Video{S3Object: s3Object(ref)},
		MinConfidence: aws.Float32(float32(minConfidence)),
	})
	if err != nil {
		return "", fmt.Errorf("rekognition start content moderation: %w", err)
	}
	return aws.ToString(out.JobId), nil
}

// PollModerationJob fetches the job state; once it has succeeded every result page is read.
func (r *Rekognition) PollModerationJob(ctx context.Context, handle string) (core.ModerationPoll, error) {
	in := &rekognition.GetContentModerationInput{JobId: aws.String(handle)}
	out, err := r.api.GetContentModeration(ctx, in)
	if err != nil {
		return core.ModerationPoll{}, fmt.Errorf("rekognition get content moderation: %w", err)
	}

	poll := core.ModerationPoll{
		Status: videoJobStatus(out.JobStatus),
		Reason: aws.ToString(out.StatusMessage),
	}
	if !poll.Status.Done() {
		return poll, nil
	}

	for {
		for _, d := range out.ModerationLabels {
			if d.ModerationLabel != nil {
				poll.Labels = append(poll.Labels, aws.ToString(d.ModerationLabel.Name))
			}
		}
		if out.NextToken == nil {
			break
		}
		in.NextToken = out.NextToken
		if out, err = r.api.GetContentModeration(ctx, in); err != nil {
			return core.ModerationPoll{}, fmt.Errorf("rekognition get content moderation page: %w", err)
		}
	}
	return poll, nil
}

func videoJobStatus(s types.VideoJobStatus) core.JobStatus {
	switch s {
	case types.VideoJobStatusSucceeded:
		return core.JobStatusSucceeded
	case types.VideoJobStatusFailed:
		return core.JobStatusFailed
	default:
		return core.JobStatusInProgress
	}
}

func s3Object(ref core.ObjectRef) *types.S3Object {
	return &types.S3Object{Bucket: aws.String(ref.Bucket), Name: aws.String(ref.Key)}
}
