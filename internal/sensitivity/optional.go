package sensitivity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional is a power figure that may be absent, e.g. the 1e-4 sensitivity
// of a curve that never reaches 1e-4.
type Optional struct {
	value float64
	ok    bool
}

// Some returns a present value.
func Some(v float64) Optional { return Optional{value: v, ok: true} }

// None returns the absent marker.
func None() Optional { return Optional{} }

// Get returns the value and whether it is present.
func (o Optional) Get() (float64, bool) { return o.value, o.ok }

// Valid reports whether the value is present.
func (o Optional) Valid() bool { return o.ok }

// Sub returns o - other, absent if either side is absent.
func (o Optional) Sub(other Optional) Optional {
	if !o.ok || !other.ok {
		return None()
	}
	return Some(o.value - other.value)
}

// Equal reports whether both values are absent or both hold the same number.
func (o Optional) Equal(other Optional) bool {
	return o.ok == other.ok && (!o.ok || o.value == other.value)
}

// Text renders the value with the given verb, or "---" when absent.
func (o Optional) Text(verb string) string {
	if !o.ok {
		return "---"
	}
	return fmt.Sprintf(verb, o.value)
}

func (o Optional) String() string { return o.Text("%.2f") }

// MarshalJSON encodes an absent value as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent.
func (o *Optional) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
