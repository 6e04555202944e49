package routeros

import (
	"errors"
	"strings"
)

// Kind classifies a device failure so callers can tell an unreachable
// device from rejected credentials from a rejected command.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindAuth
	KindCommand
	KindNotFound
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection failed"
	case KindAuth:
		return "authentication rejected"
	case KindCommand:
		return "command rejected"
	case KindNotFound:
		return "not found"
	case KindProtocol:
		return "protocol error"
	}
	return "unknown"
}

// Sentinels for errors.Is. A *DeviceError matches the sentinel of its Kind;
// duplicate-name command errors also match ErrAlreadyExists.
var (
	ErrConnection    = errors.New("device unreachable")
	ErrAuth          = errors.New("device rejected credentials")
	ErrCommand       = errors.New("device rejected command")
	ErrNotFound      = errors.New("device entity not found")
	ErrAlreadyExists = errors.New("device entity already exists")
	ErrProtocol      = errors.New("malformed device reply")
)

var kindSentinels = map[Kind]error{
	KindConnection: ErrConnection,
	KindAuth:       ErrAuth,
	KindCommand:    ErrCommand,
	KindNotFound:   ErrNotFound,
	KindProtocol:   ErrProtocol,
}

// DeviceError is every failure the client reports.
type DeviceError struct {
	Kind    Kind
	Command string
	// Message is the device's own text for traps, or a local description.
	Message string
	// Category is the trap category reported by the device, -1 if none.
	Category int
	Err      error
}

func (e *DeviceError) Error() string {
	var b strings.Builder
	b.WriteString("routeros")
	if e.Command != "" {
		b.WriteString(" ")
		b.WriteString(e.Command)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func (e *DeviceError) Is(target error) bool {
	if target == ErrAlreadyExists {
		return e.Duplicate()
	}
	return kindSentinels[e.Kind] == target
}

// Duplicate reports whether the device refused the command because the
// entity already exists.
func (e *DeviceError) Duplicate() bool {
	return e.Kind == KindCommand && isDuplicateMessage(e.Message)
}

// NewTrapError classifies a "!trap" reply for the given command path.
func NewTrapError(command, message string, category int) *DeviceError {
	kind := KindCommand
	if isNotFoundMessage(message) {
		kind = KindNotFound
	}
	return &DeviceError{Kind: kind, Command: command, Message: message, Category: category}
}

// The device reports duplicates and missing items only as free text, so
// this matching is tied to firmware wording.
var (
	duplicateMarkers = []string{"already have", "already exists", "same name"}
	notFoundMarkers  = []string{"no such item", "not found", "no such user"}
)

func isDuplicateMessage(msg string) bool {
	return containsAny(strings.ToLower(msg), duplicateMarkers)
}

func isNotFoundMessage(msg string) bool {
	return containsAny(strings.ToLower(msg), notFoundMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Outcome names the result of a call for metrics and logs.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var de *DeviceError
	if !errors.As(err, &de) {
		return "error"
	}
	switch de.Kind {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindCommand:
		if de.Duplicate() {
			return "duplicate"
		}
		return "command"
	case KindNotFound:
		return "not_found"
	case KindProtocol:
		return "protocol"
	}
	return "error"
}
