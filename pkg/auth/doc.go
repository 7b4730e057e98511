// Package auth orchestrates login. The Service handles password
// authentication, token issuance, and logout; the OAuthFlow drives the
// authorization-code dance against external providers and funnels every
// successful login, local or external, through the same session-minting
// path.
//
// Storage is consumed through narrow interfaces (UserStore,
// sessions.Store) injected at construction, so the orchestrators carry
// no ambient state and are trivially testable with doubles.
package auth
