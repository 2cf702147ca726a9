// Package debugctx carries opt-in debug tracing through a context. Debug
// output is grouped so callers can enable only the traffic they care about
// (network calls, secret resolution, reconcile decisions).
package debugctx

import (
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	GroupAll       = "all"
	GroupNetwork   = "network"
	GroupSecrets   = "secrets"
	GroupReconcile = "reconcile"
)

type groupsKey struct{}
type writerKey struct{}

func WithGroups(ctx context.Context, groups []string) context.Context {
	if len(groups) == 0 {
		return ctx
	}

	enabled := make(map[string]bool, len(groups))
	for _, group := range groups {
		name := strings.ToLower(strings.TrimSpace(group))
		if name == "" {
			continue
		}
		enabled[name] = true
	}
	if len(enabled) == 0 {
		return ctx
	}
	return context.WithValue(ctx, groupsKey{}, enabled)
}

func Enabled(ctx context.Context, group string) bool {
	if ctx == nil {
		return false
	}

	enabled, _ := ctx.Value(groupsKey{}).(map[string]bool)
	if len(enabled) == 0 {
		return false
	}
	return enabled[GroupAll] || enabled[strings.ToLower(strings.TrimSpace(group))]
}

func WithWriter(ctx context.Context, writer io.Writer) context.Context {
	if writer == nil {
		return ctx
	}

	return context.WithValue(ctx, writerKey{}, writer)
}

func Writer(ctx context.Context) io.Writer {
	if ctx == nil {
		return nil
	}

	writer, _ := ctx.Value(writerKey{}).(io.Writer)
	return writer
}

func Printf(ctx context.Context, group string, format string, args ...any) {
	if !Enabled(ctx, group) {
		return
	}

	writer := Writer(ctx)
	if writer == nil {
		return
	}

	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}

	_, _ = fmt.Fprintf(writer, "debug[%s]: %s\n", group, message)
}
