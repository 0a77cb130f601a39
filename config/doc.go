// Package config loads answercached settings.
//
// Settings come from an optional YAML or JSON file and ANSWERCACHE_*
// environment variables, where nested keys join with underscores
// (cache.similarity_threshold becomes ANSWERCACHE_CACHE_SIMILARITY_THRESHOLD).
// String values pass through a secret.Resolver, so a file may say
//
//	admin:
//	  jwt:
//	    secret: secretref:file:/run/secrets/answercache-jwt
//
// A Watcher re-reads the file on change and applies the settings that can
// change at runtime: the similarity threshold and the log level.
package config
