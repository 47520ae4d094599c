package metrics

import (
	"strconv"
	"time"
)

// UpstreamCompleted records an upstream call that produced an HTTP response.
func UpstreamCompleted(resource, method string, status int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(resource, method, statusClass(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(resource, method).Observe(duration.Seconds())
}

// UpstreamFailed records an upstream call that ended without a usable
// response. outcome is "error" for transport failures and "bad_gateway" for
// undecodable bodies.
func UpstreamFailed(resource, method, outcome string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(resource, method, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(resource, method).Observe(duration.Seconds())
}

// LoginAttempt records the outcome of a login request.
func LoginAttempt(outcome string) {
	LoginsTotal.WithLabelValues(outcome).Inc()
}

// UploadStored records a successfully stored upload.
func UploadStored(size int64) {
	UploadsTotal.WithLabelValues("stored").Inc()
	UploadBytesTotal.Add(float64(size))
}

// UploadFailed records a rejected or failed upload.
func UploadFailed(outcome string) {
	UploadsTotal.WithLabelValues(outcome).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
