package domain

import (
	"fmt"
	"math"
)

// AggregationMethod selects how per-category scores are summarized.
type AggregationMethod string

const (
	// AggregationZScore averages each judge's z-score within its category.
	// Averaging the z-scores of the sample they were computed from always
	// yields zero, so every category reports 0.0. This is the canonical
	// behavior and is kept as is.
	AggregationZScore AggregationMethod = "zscore"

	// AggregationMean reports the raw mean of each category over the judges
	// that scored it.
	AggregationMean AggregationMethod = "mean"
)

// zeroSnap is the magnitude below which a z-score average is treated as
// floating-point residue.
const zeroSnap = 1e-9

// rescaleAbove is the largest magnitude summed and squared as is. Samples
// beyond it are divided by their largest magnitude first so intermediate
// sums stay finite.
const rescaleAbove = 1e100

// Aggregator combines judge records for a single subject into an
// AggregatedFeedback. Implementations are pure and safe for concurrent use.
type Aggregator interface {
	// Aggregate fails with *InsufficientDataError when records is empty and
	// with *InvalidInputError when a record holds a non-finite score.
	Aggregate(records []JudgeRecord) (AggregatedFeedback, error)
}

// NewAggregator returns the aggregator for method. An empty method selects
// AggregationZScore.
func NewAggregator(method AggregationMethod) (Aggregator, error) {
	switch method {
	case "", AggregationZScore:
		return ZScoreAggregator{}, nil
	case AggregationMean:
		return MeanAggregator{}, nil
	default:
		return nil, fmt.Errorf("unknown aggregation method %q", method)
	}
}

// ZScoreAggregator normalizes every category against its own population
// mean and standard deviation and averages the normalized values. A
// category whose values do not vary (one judge, or identical scores) is
// reported as 0.0.
type ZScoreAggregator struct{}

// Aggregate implements Aggregator.
func (ZScoreAggregator) Aggregate(records []JudgeRecord) (AggregatedFeedback, error) {
	return aggregate(records, zScoreMean)
}

// MeanAggregator reports the arithmetic mean of each category.
type MeanAggregator struct{}

// Aggregate implements Aggregator.
func (MeanAggregator) Aggregate(records []JudgeRecord) (AggregatedFeedback, error) {
	return aggregate(records, func(values []float64) float64 {
		if allEqual(values) {
			return values[0]
		}
		mean, _ := populationStats(values)
		return mean
	})
}

// aggregate groups values by category, skipping judges that did not score
// a category, and reduces each group with summarize. Comments are copied
// in submission order.
func aggregate(records []JudgeRecord, summarize func([]float64) float64) (AggregatedFeedback, error) {
	if len(records) == 0 {
		return AggregatedFeedback{}, &InsufficientDataError{}
	}

	byCategory := make(map[string][]float64)
	comments := make([]string, 0, len(records))

	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return AggregatedFeedback{}, fmt.Errorf("record %d: %w", i, err)
		}
		for category, score := range rec.Scores {
			byCategory[category] = append(byCategory[category], score)
		}
		comments = append(comments, rec.Comment)
	}

	normalized := make(map[string]float64, len(byCategory))
	for category, values := range byCategory {
		normalized[category] = summarize(values)
	}

	return AggregatedFeedback{
		Scores:     NewCategoryScores(normalized),
		Comments:   comments,
		JudgeCount: len(records),
	}, nil
}

func zScoreMean(values []float64) float64 {
	if allEqual(values) {
		return 0.0
	}
	scale, mean, stddev := scaledStats(values)
	if stddev == 0 {
		return 0.0
	}

	var sum float64
	for _, v := range values {
		sum += (v/scale - mean) / stddev
	}
	avg := sum / float64(len(values))
	if math.Abs(avg) < zeroSnap {
		return 0.0
	}
	return avg
}

// populationStats returns the population mean and standard deviation. Both
// stay finite for any finite input.
func populationStats(values []float64) (mean, stddev float64) {
	scale, m, s := scaledStats(values)
	return m * scale, s * scale
}

// scaledStats returns the mean and standard deviation of values/scale, where
// scale is 1 unless the sample holds magnitudes above rescaleAbove.
func scaledStats(values []float64) (scale, mean, stddev float64) {
	scale = 1
	if len(values) == 0 {
		return scale, 0, 0
	}
	var peak float64
	for _, v := range values {
		peak = max(peak, math.Abs(v))
	}
	if peak > rescaleAbove {
		scale = peak
	}

	n := float64(len(values))
	for _, v := range values {
		mean += v / scale
	}
	mean /= n

	var sq float64
	for _, v := range values {
		d := v/scale - mean
		sq += d * d
	}
	return scale, mean, math.Sqrt(sq / n)
}

func allEqual(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
