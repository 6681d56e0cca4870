// Package util provides shared error types, context helpers, and HTTP
// utilities used across the gateway.
//
// # Error Handling Conventions
//
// The gateway distinguishes three request-scoped failures: no route matched
// the path, the resolved upstream could not be reached, and the request was
// malformed. Each has a sentinel error for errors.Is checks and a typed
// error carrying context. None of them terminate the process.
//
// Errors are wrapped with fmt.Errorf("...: %w", err) when crossing package
// boundaries so the sentinel remains reachable through errors.Is.
package util
