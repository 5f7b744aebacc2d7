package util

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexInt decodes 7, 7.0 and "7". Any other value decodes as 0 without error.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	v, _ := flexNumber(b)
	*f = FlexInt(v)
	return nil
}

// FlexFloat decodes 0.8 and "0.8". Set reports whether a number was present.
type FlexFloat struct {
	Value float64
	Set   bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	f.Value, f.Set = flexNumber(b)
	return nil
}

func flexNumber(b []byte) (float64, bool) {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

// StringList decodes an array of strings, skipping blanks and non-strings.
// A lone string decodes as a one-element list.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = appendNonBlank(nil, one)
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil {
			out = appendNonBlank(out, s)
		}
	}
	*l = out
	return nil
}

func appendNonBlank(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		dst = append(dst, s)
	}
	return dst
}
