// Package session holds the state of one targeting session: the raw inputs,
// the range policy, the last computed shot and the overlays drawn for it.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/internal/route"
	"github.com/artylery/smash/internal/targeting"
)

// InputFormat selects how origin and target inputs are parsed.
type InputFormat int

const (
	FormatDecimal  InputFormat = iota // "(lat, lon)"
	FormatCardinal                    // "50.4° N, 30.5° E"
	FormatFields                      // separate latitude and longitude fields
)

func (f InputFormat) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	case FormatCardinal:
		return "cardinal"
	case FormatFields:
		return "fields"
	default:
		return fmt.Sprintf("InputFormat(%d)", int(f))
	}
}

// ParseInputFormat accepts the names printed by String.
func ParseInputFormat(s string) (InputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decimal":
		return FormatDecimal, nil
	case "cardinal":
		return FormatCardinal, nil
	case "fields", "custom":
		return FormatFields, nil
	}
	return 0, fmt.Errorf("unknown input format %q", s)
}

// State is the computation state of a session.
type State int

const (
	Idle State = iota
	Computing
	Computed
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Computing:
		return "computing"
	case Computed:
		return "computed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Input is the raw text of one coordinate. Text is used by the decimal and
// cardinal formats, Lat and Lon by the fields format.
type Input struct {
	Text string
	Lat  string
	Lon  string
}

// TextInput returns an input for the decimal or cardinal format.
func TextInput(text string) Input {
	return Input{Text: text}
}

// FieldInput returns an input for the fields format.
func FieldInput(lat, lon string) Input {
	return Input{Lat: lat, Lon: lon}
}

func (in Input) empty(f InputFormat) bool {
	if f == FormatFields {
		return strings.TrimSpace(in.Lat) == "" || strings.TrimSpace(in.Lon) == ""
	}
	return strings.TrimSpace(in.Text) == ""
}

// User-facing messages.
const (
	MsgInvalidCoordinates = "Enter the correct coordinates"
	MsgOutOfRange         = "Target is out of range"
	MsgNoLocation         = "Please provide access to your geolocation to use this feature"
	MsgUnknown            = "Something went wrong"
)

// ErrEmptyInput is returned by Compute when either input is blank.
var ErrEmptyInput = errors.New("coordinate input is empty")

// UserMessage maps an error from this package, or one it passes through, to
// the text shown to the user. A nil error maps to "".
func UserMessage(err error) string {
	var (
		pe *geo.ParseError
		re *targeting.RejectionError
		rt *route.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput), errors.As(err, &pe):
		return MsgInvalidCoordinates
	case errors.As(err, &re):
		return MsgOutOfRange
	case errors.As(err, &rt):
		return rt.UserMessage()
	case errors.Is(err, ErrNoLocation):
		return MsgNoLocation
	default:
		return MsgUnknown
	}
}
