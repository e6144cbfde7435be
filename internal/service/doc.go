// Package service holds the application use cases. Services validate
// input, apply quota and ownership rules, set transaction boundaries over
// the store interfaces and hand long-running work to the task runner
// through events. They never depend on a concrete store or provider.
package service
