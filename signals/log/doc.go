// Package log defines the structured logging interface and typed logging
// fields used across lib-signals.
//
// Adapters (such as the zap package) implement Logger so library code can
// stay backend-agnostic.
package log
