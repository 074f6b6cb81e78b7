// Package classify maps a database error's vendor code and SQLSTATE to
// one of a small set of handling classes, so the Worker attempt loop
// can branch on "what to do next" without knowing anything about the
// dialect that produced the error.
package classify

// Class is the outcome of classifying a database error.
type Class int

const (
	// Retry means: same transaction, same parameters, retry after a
	// small jittered backoff.
	Retry Class = iota
	// RetryDifferent means: drop this transaction instance, the
	// worker should choose a fresh one from the phase mix.
	RetryDifferent
	// UserAbort means: the transaction body deliberately rolled back
	// as part of the benchmark's own spec (e.g. 1% of NewOrder).
	UserAbort
	// Fatal means: do not retry; the worker tears down and
	// reconnects its session.
	Fatal
	// Unknown is the default: treated as Retry up to the attempt cap,
	// then converted to an error.
	Unknown
)

func (c Class) String() string {
	switch c {
	case Retry:
		return "retry"
	case RetryDifferent:
		return "retry_different"
	case UserAbort:
		return "user_abort"
	case Fatal:
		return "fatal"
	case Unknown:
		return "unknown"
	default:
		return "unrecognized"
	}
}

// code pairs a vendor-specific error number with the SQLSTATE that
// accompanied it; used as the exact-match lookup key.
type code struct {
	vendor   int
	sqlstate string
}

// Classifier holds the three ordered lookup tables described by the
// spec: exact (vendor code, sqlstate) matches, sqlstate-only matches,
// and a set of sqlstates that always force Fatal regardless of vendor
// code. Classify is a pure function of the classifier's state, so a
// Classifier built once at startup and never mutated again is safe
// for concurrent reads from every Worker.
type Classifier struct {
	exact     map[code]Class
	byState   map[string]Class
	fatalOnly map[string]bool
}

// New returns a Classifier seeded with the authoritative entries from
// the spec: MySQL, SQL Server, Oracle, DB2 and PostgreSQL deadlock /
// serialization / cancellation / resource-exhaustion codes.
func New() *Classifier {
	c := &Classifier{
		exact:     make(map[code]Class),
		byState:   make(map[string]Class),
		fatalOnly: make(map[string]bool),
	}

	// Exact (vendor code, sqlstate) matches.
	c.RegisterExact(1213, "40001", Retry)  // MySQL deadlock
	c.RegisterExact(1205, "41000", Retry)  // MySQL lock timeout
	c.RegisterExact(1205, "40001", Retry)  // SQL Server deadlock
	c.RegisterExact(8177, "72000", Retry)  // Oracle serialization failure
	c.RegisterExact(-911, "40001", Retry)  // DB2 deadlock
	c.RegisterExact(0, "57014", RetryDifferent)    // DB2 query cancelled
	c.RegisterExact(-952, "57014", RetryDifferent) // DB2 query cancelled

	// Vendor-code-only fallbacks for drivers whose Go client does not
	// surface a SQLSTATE alongside the vendor error number.
	c.RegisterExact(1213, "", Retry) // MySQL deadlock, no sqlstate available
	c.RegisterExact(1205, "", Retry) // MySQL lock wait timeout, no sqlstate available
	c.RegisterExact(-911, "", Retry) // DB2 deadlock, no sqlstate available

	// SQLSTATE-only matches.
	c.RegisterState("40001", Retry)          // PostgreSQL serialization failure
	c.RegisterState("02000", RetryDifferent) // no data
	c.RegisterState("", Retry)               // null sqlstate

	// SQLSTATEs that are always fatal, independent of vendor code,
	// consulted only once the first two tables miss.
	c.RegisterFatal("53200") // PostgreSQL out of memory
	c.RegisterFatal("XX000") // PostgreSQL internal error

	return c
}

// RegisterExact adds or overrides an exact (vendor code, sqlstate)
// entry. Not safe to call concurrently with Classify; intended for
// startup-time dialect-specific extension only.
func (c *Classifier) RegisterExact(vendorCode int, sqlstate string, class Class) {
	c.exact[code{vendor: vendorCode, sqlstate: sqlstate}] = class
}

// RegisterState adds or overrides a sqlstate-only entry.
func (c *Classifier) RegisterState(sqlstate string, class Class) {
	c.byState[sqlstate] = class
}

// RegisterFatal adds a sqlstate to the always-fatal set.
func (c *Classifier) RegisterFatal(sqlstate string) {
	c.fatalOnly[sqlstate] = true
}

// Classify maps (vendorCode, sqlstate) to a Class by consulting the
// three tables in order: exact match, then sqlstate-only match, then
// the always-fatal set. Anything that matches none of the three is
// Unknown. Classify never mutates the Classifier and is deterministic:
// the same inputs always produce the same output, and lookup order is
// fixed across calls and across processes.
func (c *Classifier) Classify(vendorCode int, sqlstate string) Class {
	if class, ok := c.exact[code{vendor: vendorCode, sqlstate: sqlstate}]; ok {
		return class
	}
	if class, ok := c.byState[sqlstate]; ok {
		return class
	}
	if c.fatalOnly[sqlstate] {
		return Fatal
	}
	return Unknown
}
