package docql

import "github.com/google/uuid"

// NewPrimaryKey generates a client-side primary key for Insert calls that
// want to choose their own id rather than rely on server-side generation —
// the same uuid.New().String() convention the teacher's services use for
// every generated record id.
func NewPrimaryKey() string {
	return uuid.New().String()
}
