package analytics

// Value is a float that may be undefined where insufficient history exists or
// a computation degenerates (for example a zero rolling std). Undefined
// values never satisfy a threshold comparison; consumers must check Defined
// before using Float64.
type Value struct {
	Float64 float64
	Defined bool
}

// Def wraps a defined value.
func Def(f float64) Value { return Value{Float64: f, Defined: true} }

// Undef is the undefined sentinel.
func Undef() Value { return Value{} }

// GreaterEq reports whether the value is defined and at least t.
func (v Value) GreaterEq(t float64) bool { return v.Defined && v.Float64 >= t }

// LessEq reports whether the value is defined and at most t.
func (v Value) LessEq(t float64) bool { return v.Defined && v.Float64 <= t }
