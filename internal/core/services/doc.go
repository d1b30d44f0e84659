// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Providers and stores are injected
// once through constructors; nothing here reads global state other than
// the logger.
package services
