package ingestion_engine

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

const (
	transcriptSuffix = "_transcript.txt"
	textSuffix       = ".txt"
)

// DerivedTextKey maps an original key to its text artifact key:
// prefix + basename without extension + suffix. Originals already carry a
// uniqueness token in their basename, so the mapping does not collide.
func DerivedTextKey(prefix, originalKey string, strategy Strategy) string {
	base := path.Base(originalKey)
	base = strings.TrimSuffix(base, path.Ext(base))

	suffix := textSuffix
	if strategy == StrategyTranscription {
		suffix = transcriptSuffix
	}
	return prefix + base + suffix
}

// Publisher writes extracted text next to the original in the artifact store.
type Publisher struct {
	store       core.ObjectClient
	prefix      string
	callTimeout time.Duration
}

func NewPublisher(store core.ObjectClient, prefix string, callTimeout time.Duration) *Publisher {
	return &Publisher{store: store, prefix: prefix, callTimeout: callTimeout}
}

// Publish stores text under the derived key and returns that key.
func (p *Publisher) Publish(ctx context.Context, originalKey string, strategy Strategy, text string) (string, error) {
	key := DerivedTextKey(p.prefix, originalKey, strategy)

	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	if err := p.store.Put(ctx, key, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
