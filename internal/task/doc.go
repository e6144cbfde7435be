// Package task runs long-lived background work off the request path.
//
// A TaskRunner owns a bounded queue and a fixed pool of workers. Each
// submitted Task runs under its own cancellable context, so a single
// drive can be stopped without disturbing the others. The main task type,
// VideoGenerationTask, drives one stored video task from PENDING to a
// terminal state against the video provider, persisting every transition.
package task
