package pathstore

import (
	"math/rand"
	"net/http"
	"time"
)

const maxBackoff = 30 * time.Second

// retryable reports whether a response status is worth retrying.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// backoff returns the wait before retry n (0-indexed) with jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
