package core

import "time"

// QualitySnapshot is a single historical quality_overall reading for a
// resource, persisted periodically so the degradation scan (spec
// §4.6 "Degradation", §4.11) can compare the latest score against a
// rolling 30-day mean.
type QualitySnapshot struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Overall    float64   `json:"overall"`
	TakenAt    time.Time `json:"taken_at"`
}
