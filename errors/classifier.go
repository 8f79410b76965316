package errors

// IsRetryable classifies whether a caller might reasonably retry the
// operation that produced err. It is advisory only: the driver itself never
// retries (Non-goals excludes connection pooling and load balancing, which a
// retry loop would presuppose managing).
//
// Transient (retryable): Timeout, IoError.
// Permanent (not retryable): everything else — a ProtocolError or AuthError
// means the connection or handshake is unsalvageable, a TypeMismatch or
// NoMoreData is a caller bug, and a ConnectionClosed or ServerError won't
// resolve itself by resending the same request.
func IsRetryable(err error) bool {
	switch err.(type) {
	case *Timeout, *IoError:
		return true
	default:
		return false
	}
}
