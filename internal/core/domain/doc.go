// Package domain defines the core business entities for goldsmith.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContextGroup: Ordered passages that ground generated inputs
//   - SeedInput: A candidate input before evolution
//   - EvolutionKind: A named rewrite strategy (depth or breadth)
//   - Golden: A finished evaluation record with its evolution trace
//   - GenerationRequest: Per-call generation configuration
//   - Span: An explicit span tree carried in context.Context
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
