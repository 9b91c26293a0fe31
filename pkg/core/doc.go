// Package core defines the shared language of the academy system.
//
// This package contains:
//   - Result types produced by the embedded engines (Value, TabularResult, Outcome)
//   - The validation verdict shared by the checker and the session controller
//   - Challenge identity and hint bookkeeping (ChallengeKey, HintState)
//   - Engine adapter contracts (Adapter, AdapterConfig)
//
// pkg/core imports only the standard library. All other packages depend on
// core, not the reverse.
package core
