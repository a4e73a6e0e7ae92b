// Package lead resolves campaign target addresses to captured leads and
// owns the visitor capture and page-view counters of a lead magnet.
package lead
