package wsutil

import "log/slog"

// SafeSend sends data to a channel without blocking or panicking.
// A nil, full or closed channel drops the message and returns false.
// Panics from a closed channel are recovered and logged.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	if ch == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("SafeSend recovered panic", "tag", "wsutil", "panic", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
