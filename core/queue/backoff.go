package queue

// MaxBackoffSeconds is the hard ceiling of any redelivery delay (12 hours),
// which is also the largest visibility timeout the queue service accepts.
const MaxBackoffSeconds = 43200

// ComputeDelay returns the redelivery delay in seconds for a message that has
// already been delivered retryCount times: min(minSeconds * 2^retryCount, maxSeconds),
// with maxSeconds itself capped at MaxBackoffSeconds.
// Negative arguments are treated as zero. The exponential saturates at the cap,
// so large retry counts never overflow.
func ComputeDelay(retryCount, minSeconds, maxSeconds int) int {
	retryCount = max(retryCount, 0)
	minSeconds = max(minSeconds, 0)
	effectiveMax := min(max(maxSeconds, 0), MaxBackoffSeconds)

	delay := minSeconds
	for range retryCount {
		// delay <= MaxBackoffSeconds here, doubling cannot overflow
		if delay == 0 || delay >= effectiveMax {
			break
		}
		delay *= 2
	}

	return min(delay, effectiveMax)
}
