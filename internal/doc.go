// Package internal contains the implementation packages of the archipelago
// CLI.
//
// # Package Organization
//
//   - scanner: sorted recursive file listing and extension filters
//   - validation: static export analysis of client components, path checks
//   - registry: the component catalog keyed by identifier
//   - renderer: page rendering, markdown pages and markup formatting
//   - discovery: island markers found in rendered markup
//   - build: the build pipeline, hydration bundler, CSS step and output
//     reconciliation
//   - config: configuration sources, defaults and validation
//   - errors: the structured build error and its collector
//   - logging: the structured logger
//   - metrics: build recorders, including the Prometheus textfile exporter
//   - watcher: debounced filesystem watching for rebuilds
//   - server: the preview server with live reload
//   - scaffolding: new projects and components from templates
//   - types: the data model shared by the packages above
//   - version: build information stamped at link time
//
// # Build Flow
//
// A build scans the pages root, renders every page in memory, collects the
// islands referenced across all pages, bundles only those components, then
// reconciles the output directory and writes the pages. Builds are
// sequential; a fatal error at any step leaves previously written pages in
// place.
package internal
