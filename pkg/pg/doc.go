// Package pg owns the PostgreSQL connection pool: environment-driven
// configuration, connect-with-retry for startup ordering against the
// database container, goose schema migrations, and a healthcheck probe.
//
// The pool is pgx native. Code that needs database/sql semantics (goose
// does) goes through the stdlib bridge; application queries never do.
package pg
