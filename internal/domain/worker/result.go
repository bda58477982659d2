package worker

import (
	"encoding/json"
	"strconv"
)

// Result is the structured payload returned by gateway operations and
// worker recipes. A failed result carries "error" and "error_type".
type Result map[string]any

const (
	keyError     = "error"
	keyErrorType = "error_type"
	keyStatus    = "status"
)

// Failure converts err into a failed result.
func Failure(err error) Result {
	return Result{
		keyError:     err.Error(),
		keyErrorType: string(KindOf(err)),
	}
}

// Failed reports whether r carries an error.
func (r Result) Failed() bool {
	_, ok := r[keyError]
	return ok
}

// Err returns the classified error carried by r, or nil.
func (r Result) Err() error {
	raw, ok := r[keyError]
	if !ok {
		return nil
	}
	msg, _ := raw.(string)
	if msg == "" {
		msg = "unknown error"
	}
	kind := Kind(r.String(keyErrorType))
	if kind == "" {
		kind = KindSystem
	}
	return &Error{Kind: kind, Msg: msg}
}

// Status returns the "status" field, or "".
func (r Result) Status() string {
	return r.String(keyStatus)
}

// String returns r[key] as a string.
func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float returns r[key] as a float64, accepting any numeric representation.
func (r Result) Float(key string) (float64, bool) {
	return toFloat(r[key])
}

// Int returns r[key] as an int, accepting any numeric representation.
func (r Result) Int(key string) (int, bool) {
	f, ok := toFloat(r[key])
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
