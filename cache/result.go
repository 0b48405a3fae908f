package cache

// Status is the outcome of a lookup.
type Status uint8

const (
	// StatusNotFound means the key was absent. It is the zero Status.
	StatusNotFound Status = iota
	// StatusOK means the key was present; the Result carries its value.
	StatusOK
	// StatusInserted means PutIfAbsent stored a new entry; there is no prior value.
	StatusInserted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInserted:
		return "inserted"
	default:
		return "not found"
	}
}

// Result carries a value together with how it was obtained.
// Absent keys and fresh inserts are ordinary outcomes, not errors.
type Result[V any] struct {
	val    V
	status Status
}

func found[V any](v V) Result[V] { return Result[V]{val: v, status: StatusOK} }

func notFound[V any]() Result[V] { return Result[V]{status: StatusNotFound} }

func inserted[V any]() Result[V] { return Result[V]{status: StatusInserted} }

// Status returns the outcome.
func (r Result[V]) Status() Status { return r.status }

// Value returns the value and true only for StatusOK.
func (r Result[V]) Value() (V, bool) { return r.val, r.status == StatusOK }

// OK reports StatusOK.
func (r Result[V]) OK() bool { return r.status == StatusOK }

// NotFound reports StatusNotFound.
func (r Result[V]) NotFound() bool { return r.status == StatusNotFound }

// Inserted reports StatusInserted.
func (r Result[V]) Inserted() bool { return r.status == StatusInserted }

func (r Result[V]) String() string { return r.status.String() }
