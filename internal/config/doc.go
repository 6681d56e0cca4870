// Package config defines the gateway configuration model and its loading,
// validation, defaulting, and hot-reload machinery.
//
// Configuration is a single YAML document in the apiVersion/kind/metadata/spec
// shape. The spec section carries the ordered route table, the named clusters
// routes forward to, listener and upstream transport settings, and optional
// middleware and observability sections.
//
// Loading:
//
//	cfg, err := config.Load("gateway.yaml")
//	if err != nil {
//	    ...
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    ...
//	}
//
// Watching for changes:
//
//	watcher, err := config.NewWatcher(path, onReload,
//	    config.WithLogger(logger))
//	if err != nil {
//	    ...
//	}
//	_ = watcher.Start(ctx)
//
// Environment variables are substituted before parsing using ${VAR} and
// ${VAR:-default} syntax; a literal dollar sign is written $$.
package config
