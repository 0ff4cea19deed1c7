// Package flow declares the remaining-quota collaborator. The quota lives in
// a separate self-service portal with its own login flow; this repository
// only consumes it.
package flow

import (
	"context"
	"fmt"
)

// Source reports the remaining campus traffic quota in megabytes.
type Source interface {
	RemainingMB(ctx context.Context, username, password string) (float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, username, password string) (float64, error)

func (f SourceFunc) RemainingMB(ctx context.Context, username, password string) (float64, error) {
	return f(ctx, username, password)
}

// Format renders a quota for display, switching to GB above 1024 MB.
func Format(mb float64) string {
	switch {
	case mb <= 0:
		return "流量耗尽，限速不限量生效"
	case mb < 1024:
		return fmt.Sprintf("剩余流量 %.2f MB", mb)
	default:
		return fmt.Sprintf("剩余流量 %.2f GB", mb/1024)
	}
}
