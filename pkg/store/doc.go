// Package store persists compiled rule bundles and serves rule lookups.
//
// A compilation run replaces the whole bundle: the YAML bundle and its JSON
// lookup index are each written to a temp file and renamed into place, so
// concurrent readers always observe a complete generation. Reads load the
// bundle fresh by default (correctness over latency); an optional cache is
// invalidated on every write and, via BundleWatcher, on bundle replacements
// performed by other processes.
package store
