// Package config provides application configuration for cachescript.
//
// Configuration is read from a YAML file with environment variable
// overrides. It covers where manifests come from, how content is fetched
// and stored, the HTTP server and telemetry. Manifests themselves are
// parsed by package manifest.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("cachescript.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("cachescript.yaml")
//
// An empty path yields the defaults.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CACHESCRIPT_SECTION_FIELD:
//
//   - CACHESCRIPT_STORAGE_BACKEND overrides storage.backend
//   - CACHESCRIPT_LOADER_MANIFESTS overrides loader.manifests (comma separated)
//   - CACHESCRIPT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A malformed value is an error rather than being ignored.
//
// # Configuration Precedence
//
//  1. Default values (Default, defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors
// keyed by dotted field path, e.g. "storage.sqlite.driver".
package config
