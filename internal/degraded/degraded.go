package degraded

import (
	"time"

	"github.com/kjstillabower/yandex-weather-bridge/internal/traffic"
)

// RecordSuccess records a successful upstream fetch.
func RecordSuccess() {
	traffic.RecordSuccess()
}

// RecordError records a failed upstream fetch (network error, timeout, bad payload).
func RecordError() {
	traffic.RecordError()
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func ErrorRate(window time.Duration) (errors, total int) {
	return traffic.ErrorRate(window)
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
