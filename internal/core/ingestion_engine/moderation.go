package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// ModerationGate blocks unsafe images and videos. Audio and documents pass untouched.
type ModerationGate struct {
	moderator     core.ContentModerator
	minConfidence float64
	callTimeout   time.Duration
	policy        PollPolicy
	logger        arbor.ILogger
}

func NewModerationGate(moderator core.ContentModerator, minConfidence float64, callTimeout time.Duration, policy PollPolicy, logger arbor.ILogger) *ModerationGate {
	policy.Kind = "moderation"
	return &ModerationGate{
		moderator:     moderator,
		minConfidence: minConfidence,
		callTimeout:   callTimeout,
		policy:        policy,
		logger:        logger,
	}
}

// CheckUnsafe reports whether the document must be rejected. The returned
// StageResult is skipped for kinds that are never moderated.
func (g *ModerationGate) CheckUnsafe(ctx context.Context, kind MediaKind, data []byte, ref core.ObjectRef) (bool, StageResult, error) {
	var (
		labels []string
		err    error
	)
	switch kind {
	case KindImage:
		labels, err = g.checkImage(ctx, data)
	case KindVideo:
		labels, err = g.checkVideo(ctx, ref)
	default:
		return false, skipped("moderation"), nil
	}
	if err != nil {
		return false, done("moderation"), err
	}

	if len(labels) > 0 {
		g.logger.Warn().Str("key", ref.Key).Strs("labels", labels).Msg("content flagged by moderation")
		return true, done("moderation"), nil
	}
	return false, done("moderation"), nil
}

func (g *ModerationGate) checkImage(ctx context.Context, data []byte) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	labels, err := g.moderator.DetectUnsafeLabels(callCtx, data, g.minConfidence)
	if err != nil {
		return nil, fmt.Errorf("image moderation: %w", err)
	}
	return labels, nil
}

func (g *ModerationGate) checkVideo(ctx context.Context, ref core.ObjectRef) ([]string, error) {
	startCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	handle, err := g.moderator.StartModerationJob(startCtx, ref, g.minConfidence)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("start video moderation: %w", err)
	}

	poll, err := AwaitJob(ctx, g.policy, func(ctx context.Context) (core.ModerationPoll, core.JobStatus, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
		p, err := g.moderator.PollModerationJob(callCtx, handle)
		return p, p.Status, err
	})
	if err != nil {
		return nil, fmt.Errorf("video moderation %s: %w", handle, err)
	}
	return poll.Labels, nil
}
