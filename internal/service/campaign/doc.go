// Package campaign implements the campaign state machine.
//
// A send creates the campaign with its zeroed metrics row, fans out one
// recipient row per resolved lead, dispatches the rendered message through
// the configured gateway and finally marks the campaign and its pending
// recipients as sent. Webhook-driven progress past "sent" lives in the
// webhook package.
//
// Repository implementations live in repository/postgres/.
package campaign
