package wrap

import (
	"context"
	"errors"
)

// Error wraps err with the LogCtx of ctx. An error that already carries a
// LogCtx keeps its chain and only has the context refreshed.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	lc, ok := Get(ctx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		if ok {
			e.logCtx = lc
		}
		return err
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: lc,
	}
}
