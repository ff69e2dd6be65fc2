// Package core provides the foundational domain types, interfaces and execution
// contexts used by the engine. It defines the core abstractions for:
//
//   - Content and Parts (role-based messages carrying text and tool traffic)
//   - Rounds (immutable per-round records with simplified and full projections)
//   - Specs (declarative tool / composite / agent definitions with lifecycle
//     callbacks and schemas)
//   - RoundContext / ToolContext (builder declaration surface & handler sandboxing)
//   - The model-streaming contract consumed by the round driver
//
// The package intentionally keeps implementation concerns (reconciliation,
// scheduling, dispatch, provider adapters) out of scope, exposing small types
// so the engine and external collaborators compose explicitly.
package core
