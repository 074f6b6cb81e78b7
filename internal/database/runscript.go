package database

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// RunScript executes the semicolon-terminated statements in script
// sequentially against one session acquired from pool, each in its
// own autocommit-style implicit transaction. Used by the --runscript
// CLI flag to apply schema DDL or seed data ahead of a benchmark run.
func RunScript(ctx context.Context, pool *Pool, script string) error {
	session, err := pool.acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "runscript: failed to acquire session")
	}
	defer session.Close()

	for i, stmt := range splitStatements(script) {
		tx, err := session.Begin(ctx, "read_committed")
		if err != nil {
			return errors.Wrapf(err, "runscript: statement %d: begin failed", i)
		}
		if err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return errors.Wrapf(err, "runscript: statement %d failed: %s", i, stmt)
		}
		if err := tx.Commit(ctx); err != nil {
			return errors.Wrapf(err, "runscript: statement %d: commit failed", i)
		}
	}
	return nil
}

// splitStatements splits a script on semicolons, dropping blank and
// comment-only (--) lines and empty statements.
func splitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(stripLineComments(raw))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func stripLineComments(block string) string {
	lines := strings.Split(block, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
