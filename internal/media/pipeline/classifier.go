package pipeline

import (
	"context"
	"hash/fnv"
	"io"

	"github.com/shandysiswandi/gostream/internal/media/entity"
)

// Classifier decides the safety verdict for an asset's content. The
// pipeline treats it as a replaceable strategy; tests inject deterministic
// implementations.
type Classifier interface {
	Classify(ctx context.Context, content io.Reader) (entity.AssetStatus, error)
}

const classifySampleBytes = 64 * 1024

// HashClassifier is the stand-in production strategy: the verdict is
// derived from an FNV-1a hash of a bounded content prefix, so the same
// content always classifies the same way.
type HashClassifier struct{}

func (HashClassifier) Classify(ctx context.Context, content io.Reader) (entity.AssetStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New64a()
	if _, err := io.Copy(h, io.LimitReader(content, classifySampleBytes)); err != nil {
		return "", err
	}

	if h.Sum64()%10 < 7 {
		return entity.AssetStatusSafe, nil
	}

	return entity.AssetStatusFlagged, nil
}
