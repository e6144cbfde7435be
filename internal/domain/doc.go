// Package domain holds the entities of the video service: users with their
// daily quota, templates, and video tasks with their lifecycle transitions.
// Nothing here performs I/O.
package domain
