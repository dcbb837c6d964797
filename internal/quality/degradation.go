package quality

import "time"

// Snapshot is a single historical quality_overall reading for a
// resource, persisted periodically so degradation can be detected
// against a rolling mean (spec §4.6 "Degradation").
type Snapshot struct {
	ResourceID string
	Overall    float64
	TakenAt    time.Time
}

// DegradationThreshold is the drop from the rolling mean that trips
// the degraded flag (spec §4.6 "≥20% below a rolling 30-day mean").
const DegradationThreshold = 0.20

// RollingWindow is the lookback window for the mean the latest score
// is compared against.
const RollingWindow = 30 * 24 * time.Hour

// IsDegraded reports whether latestOverall has dropped at least
// DegradationThreshold below the mean of snapshots taken within
// RollingWindow of now. Returns false (not degraded) when there isn't
// enough history to compute a meaningful mean.
func IsDegraded(latestOverall float64, snapshots []Snapshot, now time.Time) bool {
	var sum float64
	var count int
	cutoff := now.Add(-RollingWindow)
	for _, s := range snapshots {
		if s.TakenAt.Before(cutoff) {
			continue
		}
		sum += s.Overall
		count++
	}
	if count == 0 {
		return false
	}
	mean := sum / float64(count)
	if mean == 0 {
		return false
	}
	return (mean-latestOverall)/mean >= DegradationThreshold
}
