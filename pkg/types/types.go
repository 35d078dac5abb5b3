package types

// Reading is the published view of one timer slot: the smoothed average over
// the last refresh period and the instantaneous value from the most recent
// resolved frame.
type Reading struct {
	ID        uint32  `json:"id"`
	AverageMS float64 `json:"avg_ms"`
	LastMS    float64 `json:"last_ms"`
}
