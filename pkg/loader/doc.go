// Package loader loads a set of named script and stylesheet resources into a
// document in dependency order.
//
// Each resource moves through three stages: needed, started and finished. A
// session repeatedly starts every needed resource whose "after" list is
// finished, until all resources are finished (OnLoad fires once) or nothing
// can progress (OnFailure receives a *StallError).
//
// Resources are acquired according to their cache mode:
//
//   - NoCache links the URL into the document and never touches the store.
//   - CacheAndLoadTwice links the URL and, in parallel, fetches the content
//     into the store for the next visit.
//   - CacheThenInject fetches the content, stores it and injects it inline.
//
// For both cached modes a stored blob whose version matches is injected
// directly. A blob with a different version is deleted and the resource is
// acquired once more from the network.
//
// Example:
//
//	l, _ := loader.New(loader.Config{Store: store, Fetcher: fetcher})
//	s, err := l.Load(ctx, userConfig, defaults, loader.Options{
//		OnLoad: func() { log.Println("ready") },
//	})
//	if err != nil {
//		return err
//	}
//	return s.Wait(ctx)
package loader
