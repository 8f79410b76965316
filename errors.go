package docql

import (
	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
)

// Error type aliases so callers can write docql.ServerError instead of
// reaching into the errors subpackage directly.
type (
	IoError          = docqlerrors.IoError
	ProtocolError    = docqlerrors.ProtocolError
	AuthError        = docqlerrors.AuthError
	Timeout          = docqlerrors.Timeout
	ConnectionClosed = docqlerrors.ConnectionClosed
	NoMoreData       = docqlerrors.NoMoreData
	TypeMismatch     = docqlerrors.TypeMismatch
	ServerError      = docqlerrors.ServerError
)

// IsRetryable reports whether err represents a transient failure (an I/O
// error or a wait_for_response timeout) worth retrying, as opposed to a
// protocol, auth, or server-side logic error.
func IsRetryable(err error) bool {
	return docqlerrors.IsRetryable(err)
}
