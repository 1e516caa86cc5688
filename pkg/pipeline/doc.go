// Package pipeline implements the handler execution engine: a mutable tree
// of handlers (leaves and containers) composed with ordered middleware
// wrappers, gated by a rank filter, and assembled per phase by a bracketed
// build protocol.
//
// Control flow between handlers travels as typed signals on the error
// channel. Continue and Break are container-scoped and are absorbed at
// well-defined container boundaries; Terminate escapes to the top-level
// caller; every other failure is attributed to the innermost handler that
// first observed it and surfaces as a *HandlerError.
package pipeline
