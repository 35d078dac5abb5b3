package timers

const (
	// Averages below this are treated as "no data yet" and seeded directly.
	averageSeedEpsilon = 0.0001

	// Weight given to the newest sample. 5% keeps the displayed numbers
	// readable at typical frame rates.
	averageWeight = 0.05
)

func lerp(a, b, f float64) float64 {
	return (1-f)*a + f*b
}

// UpdateRunningAverage folds value into avg as an exponential moving average.
// An uninitialized average is seeded with the first sample unchanged.
func UpdateRunningAverage(avg, value float64) float64 {
	if avg >= averageSeedEpsilon {
		return lerp(avg, value, averageWeight)
	}
	return value
}
