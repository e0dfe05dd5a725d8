package storage

import (
	"context"
	"log/slog"
)

// Replaced reports whether storing next over prev orphans prev.
func Replaced(prev, next string) bool {
	return prev != "" && next != "" && prev != next
}

// CleanupReplaced deletes prev when next replaced it. A failed delete is logged as a
// storage cleanup warning and never surfaces as an error.
func CleanupReplaced(ctx context.Context, fs FileStore, logger *slog.Logger, prev, next string, attrs ...any) bool {
	if !Replaced(prev, next) {
		return false
	}
	if fs.Delete(ctx, prev) {
		return true
	}
	logger.Warn("storage cleanup warning", append([]any{"ref", prev}, attrs...)...)
	return false
}

// Discard removes files stored for a mutation that did not commit.
func Discard(ctx context.Context, fs FileStore, logger *slog.Logger, refs ...string) {
	Purge(ctx, fs, logger, refs, "reason", "rollback")
}

// Purge deletes every non-empty ref and returns how many were removed.
func Purge(ctx context.Context, fs FileStore, logger *slog.Logger, refs []string, attrs ...any) int {
	removed := 0
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if fs.Delete(ctx, ref) {
			removed++
			continue
		}
		logger.Warn("storage cleanup warning", append([]any{"ref", ref}, attrs...)...)
	}
	return removed
}
