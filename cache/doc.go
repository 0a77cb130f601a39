// Package cache provides a persistent answer cache for natural-language
// questions.
//
// A SemanticCache maps questions to previously generated answers. Lookups
// resolve in three steps:
//
//   - the hot tier, a small LRU keyed by the raw question text
//   - the exact store, keyed by the SHA-256 of the normalized question
//   - similarity search, scoring index candidates by Jaccard similarity of
//     their term sets against SimilarityThreshold
//
// # Basic Usage
//
//	c, err := cache.Open(ctx, cache.DefaultConfig("data/answers.json"))
//	if err != nil && !errors.Is(err, cache.ErrInitialization) {
//	    return err
//	}
//	defer c.Shutdown(ctx)
//
//	if m, ok := c.Lookup(ctx, question); ok {
//	    return m.Entry.Answer, nil
//	}
//	answer := generate(question)
//	_, _ = c.Insert(ctx, question, answer)
//
// Responder wraps the same flow around a GenerateFunc and adds stale
// refresh, request coalescing, retries and a circuit breaker.
//
// # Persistence
//
// Every mutation saves the whole store as one JSON object keyed by hash,
// written to a temporary file and renamed into place. Lookups only mark
// the store dirty; a Flusher saves dirty stores on an interval. A missing
// file is created and an unparsable one is replaced with an empty store.
//
// # Concurrency
//
// Mutations (insert, refresh, evict, sweep, clear, flush, shutdown) are
// serialized by a weighted semaphore and wait for each other. Lookups never
// wait for a mutation.
package cache
