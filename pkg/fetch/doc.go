// Package fetch retrieves resource content over HTTP.
//
// HTTPFetcher is the side channel the loader uses to pull script and
// stylesheet bodies into the blob store. Transport errors and 5xx responses
// are retried with exponential backoff; every other status is returned to the
// caller, which treats anything but 200 as a failed fetch. Relative manifest
// URLs are resolved against Config.BaseURL.
package fetch
