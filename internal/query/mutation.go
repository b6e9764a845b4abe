package query

import "context"

// Mutation runs a create/update/delete call and reports its outcome to
// OnSuccess or OnError. Callbacks are where affected queries get
// invalidated.
type Mutation[In, Out any] struct {
	Fn        func(ctx context.Context, in In) (Out, error)
	OnSuccess func(out Out, in In)
	OnError   func(err error, in In)
}

// Mutate runs Fn once. There are no retries.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	out, err := m.Fn(ctx, in)
	if err != nil {
		if m.OnError != nil {
			m.OnError(err, in)
		}
		return out, err
	}

	if m.OnSuccess != nil {
		m.OnSuccess(out, in)
	}
	return out, nil
}
