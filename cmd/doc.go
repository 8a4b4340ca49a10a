// Package cmd provides the command-line interface for archipelago.
//
// This package implements all CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - build: render every page, bundle the referenced islands and reconcile
//     the output directory
//   - bundle: bundle every client component without rendering pages
//   - list: show client components, pages and island usage
//   - serve: build, watch and preview the output with live reload
//   - config: show or validate the effective configuration
//   - init: lay out a new project
//   - component: create client components from templates
//   - version: print the build stamp
//
// # Command Examples
//
//	// Build once
//	archipelago build
//
//	// Rebuild on every source change
//	archipelago build --watch
//
//	// Island usage as YAML
//	archipelago list --format yaml
//
//	// Preview on another port
//	archipelago serve --port 3000
//
// # Registering Go pages
//
// Pages written in Go or templ are compiled into the project binary and
// registered by identifier. A project's main package calls ExecuteSite:
//
//	func main() {
//		s := site.New().
//			MustRegister("index", pages.Index()).
//			MustRegister("blog/post", pages.Post())
//		if err := cmd.ExecuteSite(s); err != nil {
//			os.Exit(1)
//		}
//	}
//
// Markdown pages need no registration.
package cmd
