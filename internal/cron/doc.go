// Package cron runs named maintenance jobs on cron expressions.
//
// A single goroutine owns a min-heap of pending runs ordered by trigger time
// and never sleeps longer than a minute at a time, so wall-clock jumps from
// NTP steps, DST changes or system sleep are noticed promptly.
package cron
