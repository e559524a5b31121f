package repository

import (
	"context"
	"strings"
	"time"
)

// DefaultTimeout bounds every store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a LIKE pattern matching any string containing fragment.
func likePattern(fragment string) string {
	return "%" + likeEscaper.Replace(fragment) + "%"
}
