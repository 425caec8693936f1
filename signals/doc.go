// Package signals provides shared context plumbing for the lib-signals
// packages: a tracking bundle that rides the request context and resolves to
// safe no-op implementations when absent.
package signals
