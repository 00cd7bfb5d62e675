package invoke

import "context"

// Local invokes commands on an in-process Router.
// Arguments and results still go through JSON, so local calls see the same
// encoding as remote ones.
type Local struct {
	router *Router
}

// NewLocal creates a Local invoker over router.
func NewLocal(router *Router) *Local {
	return &Local{router: router}
}

// Invoke implements Invoker.
func (l *Local) Invoke(ctx context.Context, command string, args any, result any) error {
	raw, err := EncodeArgs(command, args)
	if err != nil {
		return err
	}
	out, err := l.router.Dispatch(ctx, command, raw)
	if err != nil {
		return err
	}
	return DecodeResult(command, out, result)
}
