// Package webhook reconciles provider event batches against campaign state.
//
// Events are processed one at a time in batch order. Each correlated,
// non-duplicate event is appended to the event log, folded into its
// recipient's engagement ladder and counted into the campaign's metrics.
// Store failures are logged and counted per event; they never abort the
// remainder of the batch.
package webhook
