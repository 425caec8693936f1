package runtime

import (
	"bytes"
	"runtime"
	"strconv"
)

// GoroutineID returns the identity of the calling goroutine.
//
// The value is only meaningful for equality comparison within one process:
// two calls return the same value if and only if they ran on the same
// goroutine. It must not be used for scheduling decisions or persisted.
func GoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]

	// The stack header has the fixed form "goroutine <id> [<state>]:".
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))

	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}
