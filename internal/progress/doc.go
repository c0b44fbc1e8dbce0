// Package progress publishes the state of translation runs. A Hub keeps the
// latest snapshot per run id and fans changes out to subscribers, which is
// what the polling and streaming endpoints read from.
package progress
