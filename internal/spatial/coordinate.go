package spatial

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Axis tells the normalizer which range and hemisphere letters apply.
type Axis int

const (
	AxisAny Axis = iota
	AxisLatitude
	AxisLongitude
)

func (a Axis) String() string {
	switch a {
	case AxisLatitude:
		return "latitude"
	case AxisLongitude:
		return "longitude"
	default:
		return "coordinate"
	}
}

func (a Axis) limit() float64 {
	if a == AxisLatitude {
		return 90
	}
	return 180
}

func (a Axis) accepts(hemisphere string) bool {
	switch a {
	case AxisLatitude:
		return hemisphere == "N" || hemisphere == "S"
	case AxisLongitude:
		return hemisphere == "E" || hemisphere == "W"
	default:
		return true
	}
}

// CoordinateFormatError is returned when a value is neither decimal degrees
// nor degrees-minutes-seconds with an optional hemisphere letter.
type CoordinateFormatError struct {
	Value  string
	Axis   Axis
	Reason string
}

func (e *CoordinateFormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Axis, e.Value, e.Reason)
}

var (
	// Spreadsheets love typographic quotes.
	glyphReplacer = strings.NewReplacer("’", "'", "′", "'", "”", `"`, "″", `"`, "º", "°")
	hemisphereRe  = regexp.MustCompile(`[NnSsEeWw]`)
	dmsRe         = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)[^\d.]+(\d+(?:\.\d+)?)[^\d.]+(\d+(?:\.\d+)?)[^\d.]*$`)
	dmRe          = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)[^\d.]+(\d+(?:\.\d+)?)[^\d.]*$`)
)

// ParseCoordinate converts a decimal or DMS string (e.g. 3°45'33.1"S) to
// signed decimal degrees. S and W negate, N and E are positive. Without a
// hemisphere letter the sign of the degrees is kept.
func ParseCoordinate(raw string) (float64, error) {
	return parse(raw, AxisAny)
}

// ParseLatitude is ParseCoordinate restricted to [-90, 90] and N/S.
func ParseLatitude(raw string) (float64, error) {
	return parse(raw, AxisLatitude)
}

// ParseLongitude is ParseCoordinate restricted to [-180, 180] and E/W.
func ParseLongitude(raw string) (float64, error) {
	return parse(raw, AxisLongitude)
}

func parse(raw string, axis Axis) (float64, error) {
	fail := func(reason string, args ...any) (float64, error) {
		return 0, &CoordinateFormatError{Value: raw, Axis: axis, Reason: fmt.Sprintf(reason, args...)}
	}

	s := strings.TrimSpace(glyphReplacer.Replace(raw))
	if s == "" {
		return fail("empty value")
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return checkRange(raw, v, axis)
	}

	hems := hemisphereRe.FindAllString(s, -1)
	if len(hems) > 1 {
		return fail("more than one hemisphere letter")
	}
	hem := ""
	if len(hems) == 1 {
		hem = strings.ToUpper(hems[0])
		if !axis.accepts(hem) {
			return fail("hemisphere %s does not apply", hem)
		}
	}

	numeric := strings.TrimSpace(hemisphereRe.ReplaceAllString(s, ""))
	negative := strings.HasPrefix(numeric, "-")

	var dd float64
	if v, err := strconv.ParseFloat(strings.TrimRight(numeric, `°'" `), 64); err == nil {
		dd = math.Abs(v)
	} else {
		deg, minutes, seconds, ok := splitDMS(numeric)
		if !ok {
			return fail("not decimal degrees or degrees-minutes-seconds")
		}
		if minutes >= 60 || seconds >= 60 {
			return fail("minutes and seconds must be below 60")
		}
		dd = math.Abs(deg) + minutes/60.0 + seconds/3600.0
	}

	switch hem {
	case "S", "W":
		dd = -dd
	case "N", "E":
	default:
		if negative {
			dd = -dd
		}
	}
	return checkRange(raw, dd, axis)
}

func splitDMS(s string) (deg, minutes, seconds float64, ok bool) {
	if m := dmsRe.FindStringSubmatch(s); m != nil {
		deg, _ = strconv.ParseFloat(m[1], 64)
		minutes, _ = strconv.ParseFloat(m[2], 64)
		seconds, _ = strconv.ParseFloat(m[3], 64)
		return deg, minutes, seconds, true
	}
	// degrees and decimal minutes, no seconds
	if m := dmRe.FindStringSubmatch(s); m != nil {
		deg, _ = strconv.ParseFloat(m[1], 64)
		minutes, _ = strconv.ParseFloat(m[2], 64)
		return deg, minutes, 0, true
	}
	return 0, 0, 0, false
}

func checkRange(raw string, v float64, axis Axis) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &CoordinateFormatError{Value: raw, Axis: axis, Reason: "not a finite number"}
	}
	if math.Abs(v) > axis.limit() {
		return 0, &CoordinateFormatError{Value: raw, Axis: axis, Reason: fmt.Sprintf("outside ±%g", axis.limit())}
	}
	return v, nil
}
