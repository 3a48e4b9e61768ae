// Package config provides configuration types and loading for
// MiniExpress.
//
// Configuration is read from a YAML file with ${VAR} and ${VAR:-default}
// environment substitution. Keys absent from the file keep the values
// of DefaultConfig, so an empty file yields a server equivalent to the
// built-in defaults.
//
// # File Watching
//
// A Watcher reloads the file when it changes and hands the validated
// result to a callback:
//
//	w, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    _ = logger.SetLevel(cfg.Logging.Level)
//	}, config.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
//
// Only settings that can change at runtime are applied on reload. Routes
// and listener settings are fixed once the server starts.
package config
