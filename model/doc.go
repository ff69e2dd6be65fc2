// Package model hosts the concrete model implementations behind the
// core.Model contract.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic scripting for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) live in subpackages and implement
// core.Model, so the engine remains decoupled from vendor SDKs. The contract
// itself is declared in core because tool and agent specs reference it.
package model
