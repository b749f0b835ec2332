package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/artylery/smash/pkg/core"
)

// ErrInvalidCoordinates is the sentinel every ParseError unwraps to.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseErrorKind classifies why coordinate text was rejected.
type ParseErrorKind int

const (
	MalformedCount ParseErrorKind = iota + 1
	InvalidNumber
	UnknownHemisphereMarker
	OutOfRange
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedCount:
		return "malformed component count"
	case InvalidNumber:
		return "invalid number"
	case UnknownHemisphereMarker:
		return "unknown hemisphere marker"
	case OutOfRange:
		return "coordinate out of range"
	default:
		return "unknown"
	}
}

// ParseError describes malformed coordinate text. No partial point accompanies it.
type ParseError struct {
	Kind  ParseErrorKind
	Input string
	Token string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse %q: %s: %q", e.Input, e.Kind, e.Token)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Kind)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidCoordinates
}

// ParseDecimalPair parses "(lat, lon)". Parentheses are optional and whitespace
// around either component is ignored.
func ParseDecimalPair(text string) (core.GeoPoint, error) {
	stripped := strings.NewReplacer("(", "", ")", "").Replace(text)
	parts := strings.Split(stripped, ",")
	if len(parts) != 2 {
		return core.GeoPoint{}, &ParseError{Kind: MalformedCount, Input: text}
	}

	lat, err := parseComponent(text, parts[0])
	if err != nil {
		return core.GeoPoint{}, err
	}
	lon, err := parseComponent(text, parts[1])
	if err != nil {
		return core.GeoPoint{}, err
	}
	return core.NewGeoPoint(lat, lon), nil
}

// ParseLatLonFields parses latitude and longitude entered in two separate fields.
func ParseLatLonFields(latText, lonText string) (core.GeoPoint, error) {
	input := latText + "," + lonText
	lat, err := parseComponent(input, latText)
	if err != nil {
		return core.GeoPoint{}, err
	}
	lon, err := parseComponent(input, lonText)
	if err != nil {
		return core.GeoPoint{}, err
	}
	return core.NewGeoPoint(lat, lon), nil
}

// hemisphere markers, lowercase. Includes the Ukrainian abbreviations
// пн/пд/сх/зх.
var (
	latitudeMarkers = map[string]float64{
		"north": 1, "n": 1, "пн": 1,
		"south": -1, "s": -1, "пд": -1,
	}
	longitudeMarkers = map[string]float64{
		"east": 1, "e": 1, "сх": 1,
		"west": -1, "w": -1, "зх": -1,
	}
)

// ParseCardinal parses "<lat> <north|south> <lon> <east|west>". Degree signs,
// parentheses, commas and whitespace all act as separators.
func ParseCardinal(text string) (core.GeoPoint, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == '(' || r == ')' || r == ',' || r == '°' || unicode.IsSpace(r)
	})
	if len(tokens) != 4 {
		return core.GeoPoint{}, &ParseError{Kind: MalformedCount, Input: text}
	}

	lat, err := parseComponent(text, tokens[0])
	if err != nil {
		return core.GeoPoint{}, err
	}
	lon, err := parseComponent(text, tokens[2])
	if err != nil {
		return core.GeoPoint{}, err
	}

	latSign, ok := latitudeMarkers[strings.ToLower(tokens[1])]
	if !ok {
		return core.GeoPoint{}, &ParseError{Kind: UnknownHemisphereMarker, Input: text, Token: tokens[1]}
	}
	lonSign, ok := longitudeMarkers[strings.ToLower(tokens[3])]
	if !ok {
		return core.GeoPoint{}, &ParseError{Kind: UnknownHemisphereMarker, Input: text, Token: tokens[3]}
	}

	return core.NewGeoPoint(latSign*lat, lonSign*lon), nil
}

// Validate rejects points outside the WGS84 ranges. The parsers do not call it.
func Validate(p core.GeoPoint) error {
	if !p.InRange() {
		return &ParseError{Kind: OutOfRange, Input: p.String()}
	}
	return nil
}

func parseComponent(input, raw string) (float64, error) {
	token := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Kind: InvalidNumber, Input: input, Token: token}
	}
	return v, nil
}
