// Package retention removes cached blobs that can no longer be served.
//
// A Pruner compares the blob store against the current manifest and removes
// blobs for modules that were dropped, blobs whose version no longer
// matches, and blobs that have not been rewritten within a maximum age.
// A Scheduler runs the pruner on a cron expression:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    MaxAge:       30 * 24 * time.Hour,
//	    Schedule:     "0 3 * * *",
//	    PruneUnknown: true,
//	    PruneStale:   true,
//	}, currentManifest)
//	scheduler := retention.NewScheduler(pruner)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
package retention
