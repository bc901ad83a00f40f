// Package selector applies the cascading B± → D0 π± candidate selection.
//
// Stages run in a fixed order (skims, topology, PID) and each one that
// passes sets its bit in the candidate status. Evaluation stops at the
// first failing or disabled stage; bits already set are kept, so the status
// is always prefix-monotonic and downstream consumers can pick any subset
// of applied stages without re-running them.
package selector
