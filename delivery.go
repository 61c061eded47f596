package courier

import "sync/atomic"

// State is the delivery state of a Request.
type State int32

const (
	Pending State = iota
	Succeeded
	Failed
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case AuthFailed:
		return "auth_failed"
	}
	return "unknown"
}

// Target receives the outcome of a Request. Exactly one field is called per
// sent request. Value, when set, receives decoded results instead of
// Success. AuthFailure, when nil, falls back to Error with the
// *AuthenticationError.
type Target struct {
	Success     func()
	Value       func(v *Value)
	Error       func(err error)
	AuthFailure func(err *AuthenticationError)
}

func (t *Target) valid() bool {
	return t.Error != nil && (t.Success != nil || t.Value != nil)
}

// delivery is the single-fire terminal transition of a Request. finish
// decides the outcome; the deliver methods run the callback and then close
// done, so a closed done means the callback has returned.
type delivery struct {
	state  atomic.Int32
	target *Target
	done   chan struct{}
}

func newDelivery() *delivery {
	return &delivery{done: make(chan struct{})}
}

// finish moves from Pending to s. Only the first caller wins.
func (d *delivery) finish(s State) bool {
	return d.state.CompareAndSwap(int32(Pending), int32(s))
}

func (d *delivery) current() State {
	return State(d.state.Load())
}

func (d *delivery) deliverSuccess(v *Value) {
	defer close(d.done)
	t := d.target
	if t == nil {
		return
	}
	switch {
	case v != nil && t.Value != nil:
		t.Value(v)
	case t.Success != nil:
		t.Success()
	default:
		t.Value(v)
	}
}

func (d *delivery) deliverError(err error) {
	defer close(d.done)
	if d.target == nil {
		return
	}
	d.target.Error(err)
}

func (d *delivery) deliverAuthFailure(err *AuthenticationError) {
	defer close(d.done)
	t := d.target
	if t == nil {
		return
	}
	if t.AuthFailure != nil {
		t.AuthFailure(err)
		return
	}
	t.Error(err)
}
