// Package auth protects the answercache admin API.
//
// Callers present either a bearer JWT signed with a shared HS256 secret or a
// static API key. An Authenticator turns request headers into an Identity;
// the Authenticate and RequireRole middlewares attach that identity to the
// request context and enforce the cache roles:
//
//	RoleRead   lookups and statistics
//	RoleAdmin  inserts, refreshes, eviction, sweeps, flushes and clears
//
// RoleAdmin implies RoleRead.
package auth
