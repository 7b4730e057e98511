// Package tokens signs and verifies the compact session tokens issued at
// login. Tokens are HS256 JWTs carrying subject, issued-at, expiry, and a
// unique jti. Verification failures are reported as distinct errors so
// callers can tell a forged token from one that merely expired.
package tokens
