// Package syncer mirrors matched releases from the update service into the local cache.
//
// Both catalog feeds are fetched, reconciled, and every missing archive of the
// resulting versions is downloaded by a bounded pool of workers. A failed
// download is cleaned up and reported but never stops its siblings, and
// archives already present are skipped, so re-running the sync is the way to
// complete an interrupted or partially failed mirror.
package syncer
