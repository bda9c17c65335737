package transport

import (
	"errors"
	"strings"
)

// ErrNotOpen is returned when a command is issued on a closed link.
var ErrNotOpen = errors.New("transport: link not open")

// Port is a command/response link to an OBD2 adapter. Send frames the
// command with a carriage return and collects the reply until the adapter
// prompt or the read timeout. A timeout yields whatever was collected with
// a nil error: absence of data is not a transport failure, many adapters
// simply stay silent.
//
// A Port is not safe for concurrent callers; one logical operation owns
// the link at a time.
type Port interface {
	Open() error
	Send(cmd string) (string, error)
	Close() error
	Description() string
}

// Adapter-level non-answers. These arrive instead of a payload and must be
// treated like an empty response, never parsed as data.
var sentinels = []string{
	"NO DATA",
	"CAN ERROR",
	"BUS INIT: ERROR",
	"BUS ERROR",
	"UNABLE TO CONNECT",
	"SEARCHING",
	"STOPPED",
	"?",
}

// IsSentinel reports whether resp is an adapter error string rather than a
// payload.
func IsSentinel(resp string) bool {
	r := strings.ToUpper(strings.TrimSpace(resp))
	if r == "" {
		return false
	}
	for _, s := range sentinels {
		if strings.Contains(r, s) {
			return true
		}
	}
	return false
}

// CleanResponse drops the local command echo, blank lines and the prompt
// from a raw adapter reply, joining the remaining lines with one space.
func CleanResponse(raw, cmd string) string {
	raw = strings.ReplaceAll(raw, ">", "")
	var lines []string
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' }) {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, cmd) {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, " ")
}
