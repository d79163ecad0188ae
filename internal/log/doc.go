// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Scanning pages for attribution hijacking means handling the very values
// that must not leak: affiliate cookies, session identifiers and the
// credentials some trackers smuggle in query strings. The SecureHandler
// masks them before they reach any output:
//   - attributes whose key names a secret (cookie, set-cookie, token, session, ...)
//   - values that look like credentials (JWTs, bearer tokens, long API keys)
//   - credential-like query parameters inside URL values, keeping the rest
//     of the URL readable for triage
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Debug("cookie observed",
//	    "cookie", "sessionid=abc123", // masked
//	    "url", "https://shop.example/?ref=42&token=s3cr3t", // token masked
//	)
//	slog.SetDefault(logger)
package log
