package refcount

// Dropper is implemented by values that need cleanup when their last owner
// releases them.
type Dropper interface {
	Drop()
}

// Counted reports how many owners currently share a value.
type Counted interface {
	UseCount() uint
}

// Destroy runs the destructor of v, if it has one. v is usually a *T; when T
// is itself a pointer type implementing Dropper, *v is tried as well.
// It reports whether a Drop method was called.
func Destroy[T any](v *T) bool {
	if v == nil {
		return false
	}
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
		return true
	}
	if d, ok := any(*v).(Dropper); ok {
		d.Drop()
		return true
	}
	return false
}
