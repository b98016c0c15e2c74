package sweep

import "strings"

// goneMarkers are the upstream reason substrings that mean a probed source
// message no longer exists. The bot API reports this case only as
// description text, so the match is textual.
var goneMarkers = []string{
	"message to copy not found",
	"MESSAGE_ID_INVALID",
}

// MessageGone reports whether err definitely means the probed source message
// is gone. Transport failures, rate limits, and permission errors all return
// false: when in doubt the catalog entry stays.
func MessageGone(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range goneMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
