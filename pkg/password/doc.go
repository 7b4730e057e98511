// Package password provides one-way password hashing and verification
// built on bcrypt. Digests embed their own salt and cost, so a Hasher
// with a raised cost still verifies digests produced with a lower one.
package password
