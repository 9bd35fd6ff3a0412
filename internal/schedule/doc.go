// Package schedule parses crontab-style lines and decides whether an entry is due.
//
// The field language is deliberately small:
//   - "*" expands to the field's natural range (minute 0-59, hour 0-23, ...)
//   - "7" matches a single value
//   - "1-5" matches an inclusive range
//   - "*/15" matches when value%15 == 0; anything before the "/" is ignored
//   - "1,3,10-12" matches when any part matches
//
// Weekdays are numbered 0=Monday .. 6=Sunday.
package schedule
