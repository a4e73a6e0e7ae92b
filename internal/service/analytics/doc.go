// Package analytics serves the read side: per-campaign metrics views,
// sums across campaigns, trailing daily event buckets, lead engagement
// scores and lead-magnet rollups. Absence of data is reported as zeros.
package analytics
