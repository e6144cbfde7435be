// Package generation defines the boundary between the application core and
// external generation services: the asynchronous video provider that renders
// prompts into videos, and the language model that drafts scripts. Platform
// packages implement these interfaces; the task orchestrator and services
// depend only on this package.
package generation
