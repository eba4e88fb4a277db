// Package server implements the acceptance filter that decides whether a
// submitted message may be broadcast. All checks are pure; the filter never
// touches shared state.
package server

import "strings"

// reservedUsernames may never author broadcast messages. They are reserved
// for system, status, and debug announcements. Matching is case-insensitive.
var reservedUsernames = []string{"[system]", "[debug]", "[status]", "system"}

// commandPrefix marks a message as a client command rather than chat content.
// Commands are reserved for future syntax and are never broadcast.
const commandPrefix = "/"

// dominanceMinLen and dominanceShare define the character-dominance check: a
// message longer than dominanceMinLen bytes is rejected when any single byte
// value makes up more than dominanceShare of it.
const (
	dominanceMinLen = 50
	dominanceShare  = 0.25
)

// RejectReason identifies why the filter refused a message. The zero value
// means the message was accepted.
type RejectReason int

const (
	Accepted RejectReason = iota
	RejectedDominantChar
	RejectedRepetition
	RejectedReservedUsername
	RejectedCommand
)

// String returns a short machine-friendly label, used for logs and for the
// optional rejection-feedback response body.
func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedDominantChar:
		return "dominant_character"
	case RejectedRepetition:
		return "repetition"
	case RejectedReservedUsername:
		return "reserved_username"
	case RejectedCommand:
		return "command"
	default:
		return "unknown"
	}
}

// checkMessage runs the full acceptance pipeline over a candidate message and
// returns Accepted or the first matching rejection reason. Checks run from
// cheapest to most expensive.
func checkMessage(m Message) RejectReason {
	if strings.HasPrefix(m.Message, commandPrefix) {
		return RejectedCommand
	}
	if isReservedUsername(m.Username) {
		return RejectedReservedUsername
	}
	if hasDominantChar(m.Message) {
		return RejectedDominantChar
	}
	if isRepetitive(m.Message) {
		return RejectedRepetition
	}
	return Accepted
}

func isReservedUsername(username string) bool {
	lower := strings.ToLower(username)
	for _, reserved := range reservedUsernames {
		if lower == reserved {
			return true
		}
	}
	return false
}

// hasDominantChar reports whether any single byte value accounts for more
// than dominanceShare of the message. Short messages always pass; the skew
// signal is meaningless below dominanceMinLen bytes.
func hasDominantChar(message string) bool {
	if len(message) <= dominanceMinLen {
		return false
	}

	var freq [256]int
	for i := 0; i < len(message); i++ {
		freq[message[i]]++
	}

	limit := int(float64(len(message)) * dominanceShare)
	for _, n := range freq {
		if n > limit {
			return true
		}
	}
	return false
}

// isRepetitive reports whether the message, with spaces removed, is a
// non-trivial repetition of a shorter pattern ("hahahaha", "ok ok ok").
func isRepetitive(message string) bool {
	stripped := strings.ReplaceAll(message, " ", "")
	return minPeriod(stripped) < len([]rune(stripped))
}
