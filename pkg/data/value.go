package data

import (
	"strconv"
)

// Kind tags what a Value holds.
type Kind uint8

const (
	Missing Kind = iota
	Number
	Text
)

// Value is one cell of a Dataset: a number, a piece of text, or the explicit
// "no value" marker.
type Value struct {
	Kind Kind    `msgpack:"k"`
	Num  float64 `msgpack:"n,omitempty"`
	Str  string  `msgpack:"s,omitempty"`
}

// Null is the missing-value marker.
var Null = Value{Kind: Missing}

// Num wraps a number.
func Num(v float64) Value {
	return Value{Kind: Number, Num: v}
}

// Str wraps a piece of text.
func Str(s string) Value {
	return Value{Kind: Text, Str: s}
}

// IsMissing reports whether v is the "no value" marker.
func (v Value) IsMissing() bool {
	return v.Kind == Missing
}

// String renders the value the way it is written to CSV. Missing renders empty.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Text:
		return v.Str
	default:
		return ""
	}
}

// Float returns the numeric reading of v. Text is parsed; Missing is not ok.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.Num, true
	case Text:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// missingMarkers are the cell spellings read as "no value".
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
}

// IsMissingMarker reports whether a raw cell is one of the missing spellings.
func IsMissingMarker(s string) bool {
	_, ok := missingMarkers[s]
	return ok
}
