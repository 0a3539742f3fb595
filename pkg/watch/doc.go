// Package watch re-runs a load when manifest files change.
//
// Files are watched through their directories, so an editor that writes a
// temporary file and renames it over the manifest still triggers a reload.
// Events are debounced:
//
//	w, err := watch.New(watch.Config{Paths: paths, Debounce: 250 * time.Millisecond}, logger)
//	if err != nil {
//		return err
//	}
//	defer w.Stop()
//	return w.Watch(ctx, func(ctx context.Context) error {
//		_, err := srv.Reload(ctx)
//		return err
//	})
package watch
