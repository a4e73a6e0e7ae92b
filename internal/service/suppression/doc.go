// Package suppression maintains the do-not-send list.
//
// Bounces, drops and unsubscribes reported by the provider webhook land here
// and are consulted before every campaign dispatch when skip_suppressed is
// enabled. The package depends only on its Repository interface.
package suppression
