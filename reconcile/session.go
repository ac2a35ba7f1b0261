package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one comparison run. Every component of a run receives
// the same session.
type Session struct {
	ID      uuid.UUID
	Started time.Time
}

func NewSession() Session {
	return Session{ID: uuid.New(), Started: time.Now().UTC()}
}
