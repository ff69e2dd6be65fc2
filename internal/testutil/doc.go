// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing core model objects (contents, parts, round
// records) and asserting behaviors. These helpers are intentionally minimal
// and avoid adding third-party dependencies. They are not intended for
// production usage.
package testutil
