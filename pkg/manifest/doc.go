// Package manifest describes the set of resources a loader session fetches.
//
// A manifest is read from one or more configuration documents (YAML, JSON or
// HCL). Documents are first reduced to generic maps, merged with Merge so that
// the earlier document wins every scalar or list conflict, and finally decoded
// into a typed Manifest:
//
//	modules:
//	  jquery:
//	    load:
//	      url: /static/jquery.js
//	      version: "3.7.1"
//	      cache: 2
//	  app:
//	    load:
//	      url: /static/app.js
//	      version: "42"
//	      cache: 2
//	      after: [jquery]
//	onLoad: ready
//
// The cache field selects one of the three acquisition strategies
// (NoCache, CacheAndLoadTwice, CacheThenInject). The after list names the
// modules that must be finished before this one starts. Validate checks that
// every reference exists and that the dependency graph is acyclic.
//
// The HCL form uses one labelled block per module:
//
//	on_load = "ready"
//
//	module "app" {
//	  url     = "/static/app.js"
//	  version = "42"
//	  cache   = 2
//	  after   = ["jquery"]
//	}
package manifest
