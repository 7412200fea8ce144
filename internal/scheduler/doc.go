// Package scheduler runs the daemon's periodic jobs: the one-second tracker
// tick and the cron-driven location refresh. It is a single goroutine over a
// min-heap of pending runs sorted by trigger time, with a 60-second
// max-sleep-cap so NTP steps, DST transitions and system sleep never leave a
// job waiting on a stale timer.
package scheduler
