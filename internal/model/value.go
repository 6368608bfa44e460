package model

import (
	"encoding/json"
	"strconv"
)

// Value is one statistics table cell: a number, a string, or null.
// The zero Value is null. Missing data is always an explicit null,
// never a sentinel number.
type Value struct {
	num    float64
	str    string
	isNum  bool
	isStr  bool
}

// Null returns a null Value.
func Null() Value { return Value{} }

// Num returns a numeric Value.
func Num(f float64) Value { return Value{num: f, isNum: true} }

// Str returns a string Value.
func Str(s string) Value { return Value{str: s, isStr: true} }

// IsNull reports whether the cell holds no data.
func (v Value) IsNull() bool { return !v.isNum && !v.isStr }

// Float returns the numeric content and whether the cell is numeric.
func (v Value) Float() (float64, bool) { return v.num, v.isNum }

// String returns the cell rendered as text; null renders as the empty string.
func (v Value) String() string {
	switch {
	case v.isNum:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case v.isStr:
		return v.str
	}
	return ""
}

// Coerce attempts to interpret the cell as a number. String cells that look
// numeric convert; numeric cells pass through; anything else reports false.
func (v Value) Coerce() (float64, bool) {
	if v.isNum {
		return v.num, true
	}
	if v.isStr {
		f, err := strconv.ParseFloat(v.str, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// MarshalJSON renders the cell as a JSON number, string, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.isNum:
		return json.Marshal(v.num)
	case v.isStr:
		return json.Marshal(v.str)
	}
	return []byte("null"), nil
}

// UnmarshalJSON parses a JSON number, string, bool, or null into the cell.
// Booleans become 1 and 0 so boolean layers stay comparable.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Num(t)
	case string:
		*v = Str(t)
	case bool:
		if t {
			*v = Num(1)
		} else {
			*v = Num(0)
		}
	default:
		*v = Str(string(data))
	}
	return nil
}
