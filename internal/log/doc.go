// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler masks values under credential keys (cookie,
// authorization, private-token, github_token and any key containing
// "token" or "secret"), header maps from the host configuration, and
// credentials embedded in addresses, errors and messages: URL user info,
// token query parameters and GitHub or GitLab access tokens.
//
// Even in verbose mode, sensitive values are masked so that logs of a
// crawl run with per-host cookies can be shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Debug("request", "cookie", "user_session=abc") // cookie=***REDACTED***
package log
