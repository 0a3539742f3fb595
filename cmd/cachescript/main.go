// Cachescript loads the scripts and stylesheets of a page in dependency
// order, serving them from a versioned blob cache where it can.
//
// Usage:
//
//	# Load the manifests and print the resulting document
//	cachescript load site.yaml defaults.yaml
//
//	# Print the stage report instead
//	cachescript load site.yaml --output table
//
//	# Check manifests without loading anything
//	cachescript validate site.yaml
//
//	# Serve the document and reload on POST /reload or SIGHUP
//	cachescript serve --config cachescript.yaml
//
//	# Reload whenever a manifest changes
//	cachescript watch site.yaml
//
//	# Inspect and prune the blob cache
//	cachescript cache list
//	cachescript cache prune
package main

func main() {
	Execute()
}
