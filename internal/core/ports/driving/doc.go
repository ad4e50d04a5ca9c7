// Package driving defines the interfaces the engine exposes to its callers.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Request handlers, the CLI and the external scheduler invoke the engine
// exclusively through these interfaces; the services package implements
// them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driving
