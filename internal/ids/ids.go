package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

func New() string {
	return ksuid.New().String()
}

// NewCallID builds the shared room key used by both real-time backends.
// The timestamp keeps ids roughly sortable; the ksuid suffix carries the
// randomness. Collisions are guarded by the unique constraint on the
// sessions table, not here.
func NewCallID() string {
	suffix := strings.ToLower(ksuid.New().String())
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix[len(suffix)-7:])
}
