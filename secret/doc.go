// Package secret resolves credentials referenced from answercache
// configuration.
//
// Configuration strings pass through a Resolver, which first applies
// ExpandEnvStrict and then replaces secret references:
//
//	${ANSWERCACHE_JWT_SECRET}              strict environment expansion
//	secretref:env:ANSWERCACHE_JWT_SECRET   read from the environment
//	secretref:file:/run/secrets/jwt        read from a file (trailing newline trimmed)
//	Bearer secretref:env:TOKEN             references may appear inline
//
// Providers never log secret values.
package secret
