// Package orchestrator runs every venue extractor as an independent task.
//
// Each venue gets a per-attempt timeout, bounded retries with exponential
// backoff and a courtesy delay before the next venue. A failing or panicking
// extractor yields a failed ScraperResult and never stops the run. With
// Concurrency above one, venues run on a bounded WorkerPool and results are
// still reported in registry order.
package orchestrator
