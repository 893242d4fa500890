package graph

// Value is a single desired-state property value: either a literal or a
// reference to another node's output. References are substituted by the
// engine once the referenced node has been applied; there is no string
// interpolation anywhere.
type Value struct {
	literal any
	ref     *Reference
}

// Reference points at one named output of another node. A node holding a
// Reference implicitly depends on the target, with or without an explicit
// DependsOn entry.
type Reference struct {
	Target Identity
	Output string
}

// Lit wraps a literal value. Collections may nest further Values: literals
// of type []Value or map[string]Value are walked when references are
// extracted and substituted.
func Lit(v any) Value {
	return Value{literal: v}
}

// Ref builds a reference to output of target.
func Ref(target Identity, output string) Value {
	return Value{ref: &Reference{Target: target, Output: output}}
}

// IsRef reports whether the value is a reference.
func (v Value) IsRef() bool {
	return v.ref != nil
}

// Ref returns the reference, if any.
func (v Value) Ref() (Reference, bool) {
	if v.ref == nil {
		return Reference{}, false
	}
	return *v.ref, true
}

// Literal returns the wrapped literal. Zero for references.
func (v Value) Literal() any {
	return v.literal
}

// refs appends every reference reachable from v, including references
// nested inside []Value and map[string]Value literals.
func (v Value) refs(out []Reference) []Reference {
	if v.ref != nil {
		return append(out, *v.ref)
	}
	switch lit := v.literal.(type) {
	case []Value:
		for _, elem := range lit {
			out = elem.refs(out)
		}
	case map[string]Value:
		for _, elem := range lit {
			out = elem.refs(out)
		}
	}
	return out
}

// References returns every reference reachable from v.
func (v Value) References() []Reference {
	return v.refs(nil)
}
