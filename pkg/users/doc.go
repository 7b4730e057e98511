// Package users owns the canonical user record. The relational store is
// the single writer of truth: uniqueness of email, phone, and provider
// identifiers is enforced by database constraints, and constraint
// violations surface as ErrConflict rather than being pre-checked.
package users
