// Package logging provides structured logging with URL redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text and console output formats
//   - Removal of credentials from logged URLs
//   - Context fields for sessions, resources and traces
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:      "info",
//	    Format:     "json",
//	    RedactURLs: true,
//	})
//
//	// Components receive a tagged *slog.Logger
//	l, _ := loader.New(loader.Config{Logger: logger.Slog(), ...})
//
//	ctx = logging.WithSession(ctx, session.ID())
//	logger.InfoContext(ctx, "session started")
//
// # URL Redaction
//
// Asset URLs may be presigned or carry access tokens. With RedactURLs set,
// every string attribute is scanned for URLs and the following are replaced
// with "REDACTED":
//
//   - userinfo: https://user:pw@cdn.example.com → https://REDACTED@cdn.example.com
//   - token-like query parameters: ?token=abc → ?token=REDACTED
//   - presigned S3 parameters: X-Amz-Signature, X-Amz-Credential, ...
package logging
