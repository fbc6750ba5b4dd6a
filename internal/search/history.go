package search

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/jingdong00/FLAML/pkg/utils"
)

// MetricSummary holds descriptive statistics for one metric across the
// successful trials of a search.
type MetricSummary struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// HistoryAnalysis summarizes how a search progressed: per-metric
// statistics and the trend of the primary objective over time.
type HistoryAnalysis struct {
	Successes int `json:"successes"`
	// PrimaryTrend is the least-squares slope of the primary metric
	// over successive successful trials. Zero when fewer than two
	// successes exist.
	PrimaryTrend float64 `json:"primary_trend"`
	// Improving is true when the trend points in the primary
	// objective's direction of improvement.
	Improving bool            `json:"improving"`
	Metrics   []MetricSummary `json:"metrics"`
}

// AnalyzeHistory computes statistics over the successful trials in the
// log. Failed and pruned trials carry no metrics and are skipped.
func AnalyzeHistory(log *TrialLog, lexico *LexicoSpec) *HistoryAnalysis {
	successes := log.Successes()
	analysis := &HistoryAnalysis{Successes: len(successes)}

	for _, o := range lexico.Objectives() {
		values := make([]float64, 0, len(successes))
		for _, t := range successes {
			if v, ok := t.Metrics[o.Metric]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		analysis.Metrics = append(analysis.Metrics, summarize(o.Metric, values))
	}

	primary := lexico.Primary()
	if len(successes) >= 2 {
		xs := make([]float64, 0, len(successes))
		ys := make([]float64, 0, len(successes))
		for i, t := range successes {
			if v, ok := t.Metrics[primary.Metric]; ok {
				xs = append(xs, float64(i))
				ys = append(ys, v)
			}
		}
		if len(ys) >= 2 {
			_, slope := stat.LinearRegression(xs, ys, nil, false)
			analysis.PrimaryTrend = slope
			if primary.Direction == Minimize {
				analysis.Improving = slope < 0
			} else {
				analysis.Improving = slope > 0
			}
		}
	}

	return analysis
}

func summarize(metric string, values []float64) MetricSummary {
	summary := MetricSummary{
		Metric: metric,
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: utils.Percentile(values, 50),
		P95:    utils.Percentile(values, 95),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	if len(values) > 1 {
		summary.StdDev = stat.StdDev(values, nil)
	}
	for _, v := range values {
		summary.Min = math.Min(summary.Min, v)
		summary.Max = math.Max(summary.Max, v)
	}
	return summary
}
