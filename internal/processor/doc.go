// Package processor contains the core business logic of a translation run.
// It walks the uploaded questions strictly in order, makes one bounded API
// call per question, records failures in place and reports progress after
// every row.
package processor
