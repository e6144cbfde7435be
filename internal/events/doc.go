// Package events decouples request handling from background scheduling.
//
// Services emit a TaskRequestEvent once a task row is committed; a handler
// in the task package turns it into a scheduled job. Neither side imports
// the other.
package events
