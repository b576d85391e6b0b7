package tool

import "context"

var (
	// NopRunner is a runner that does nothing extra.
	NopRunner = NewRunner(context.Background(), func(status string) {})
)

type Runner interface {
	// Context is cancelled when the stream that requested the tool call goes away.
	Context() context.Context
	Report(status string)
}

type runner struct {
	ctx    context.Context
	report func(status string)
}

// NewRunner returns a new Runner. Tools run with this Runner will report status
// updates to the provided function.
func NewRunner(ctx context.Context, report func(status string)) Runner {
	return &runner{ctx: ctx, report: report}
}

func (r *runner) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *runner) Report(status string) {
	if r.report != nil {
		r.report(status)
	}
}

type reportKey struct{}

// WithReport returns a context that makes tools invoked through a Toolbox
// send their status reports to fn as well.
func WithReport(ctx context.Context, fn func(status string)) context.Context {
	return context.WithValue(ctx, reportKey{}, fn)
}

func reportFromContext(ctx context.Context) func(status string) {
	fn, _ := ctx.Value(reportKey{}).(func(status string))
	return fn
}
