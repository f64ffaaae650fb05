package signal

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/duskfield/wxengine/internal/domain"
)

// BucketProbability computes P(temperature falls in bucket) under a
// Normal(mu, sigma) forecast model, with +-0.5 continuity correction for
// the bucket's integer temperature bounds.
func BucketProbability(bucket domain.Bucket, mu, sigma float64) (float64, error) {
	if sigma <= 0 {
		return 0, fmt.Errorf("signal: sigma must be positive, got %v", sigma)
	}
	n := distuv.Normal{Mu: mu, Sigma: sigma}

	switch bucket.Type {
	case domain.BucketRange:
		return n.CDF(float64(bucket.High)+0.5) - n.CDF(float64(bucket.Low)-0.5), nil
	case domain.BucketExact:
		return n.CDF(float64(bucket.Low)+0.5) - n.CDF(float64(bucket.Low)-0.5), nil
	case domain.BucketOrHigher:
		return 1.0 - n.CDF(float64(bucket.Low)-0.5), nil
	case domain.BucketOrBelow:
		return n.CDF(float64(bucket.Low) + 0.5), nil
	default:
		return 0, fmt.Errorf("signal: unknown bucket type %q", bucket.Type)
	}
}
