package models

import "encoding/json"

// Result is the value-or-code outcome handed back to a dispatching caller.
// Exactly one of value and code is meaningful.
type Result[V any] struct {
	value V
	code  ErrorCode
	ok    bool
}

// Ok wraps a success value.
func Ok[V any](v V) Result[V] {
	return Result[V]{value: v, ok: true}
}

// Fail wraps a rejection code.
func Fail[V any](code ErrorCode) Result[V] {
	return Result[V]{code: code}
}

// ResultOf converts a (value, error) pair from the registry into a Result.
// err must be nil or a registry outcome; other errors return ok=false so the
// caller can surface them as infrastructure failures.
func ResultOf[V any](v V, err error) (Result[V], bool) {
	if err == nil {
		return Ok(v), true
	}
	code, ok := CodeOf(err)
	if !ok {
		return Result[V]{}, false
	}
	return Fail[V](code), true
}

func (r Result[V]) IsOk() bool { return r.ok }

// Value returns the success value and whether the result succeeded.
func (r Result[V]) Value() (V, bool) { return r.value, r.ok }

// Code returns the rejection code and whether the result failed.
func (r Result[V]) Code() (ErrorCode, bool) { return r.code, !r.ok }

// MarshalJSON renders {"value": v} or {"error": code}.
func (r Result[V]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Value V `json:"value"`
		}{r.value})
	}
	return json.Marshal(struct {
		Error int `json:"error"`
	}{int(r.code)})
}

// UnmarshalJSON accepts either envelope.
func (r *Result[V]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value *json.RawMessage `json:"value"`
		Error *int             `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != nil {
		*r = Fail[V](ErrorCode(*raw.Error))
		return nil
	}
	var v V
	if raw.Value != nil {
		if err := json.Unmarshal(*raw.Value, &v); err != nil {
			return err
		}
	}
	*r = Ok(v)
	return nil
}
