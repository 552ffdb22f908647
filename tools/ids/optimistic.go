package ids

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOptimisticID returns a client-side message id assigned at creation
// time. The millisecond prefix keeps ids roughly sortable in logs; the uuid
// suffix makes collisions between tabs/devices a non-issue.
func NewOptimisticID() string {
	u := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + u[:12]
}

// NewSessionID identifies one client connection to the push channel.
func NewSessionID() string {
	return uuid.NewString()
}
