package board

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for records that are not loaded or not visible to
// the actor.
var ErrNotFound = errors.New("record not found")

// MsgNotFound is the user facing text for ErrNotFound.
const MsgNotFound = "Enregistrement introuvable."

func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
