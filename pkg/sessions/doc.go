// Package sessions persists two kinds of short-lived authentication
// state: session entries mapping an issued token to a user snapshot, and
// OAuth flow state mapping a random state value to its PKCE verifier.
//
// The Store interface is backend-agnostic. RedisStore is the production
// implementation shared by all service instances; MemoryStore backs
// tests and single-process development setups. Both guarantee that flow
// state is single-use: TakeFlowState consumes the entry atomically, so
// two concurrent callbacks racing on the same state value resolve to
// exactly one winner.
package sessions
