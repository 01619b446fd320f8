// Package shared holds helpers used by more than one package of the license
// server. Its testutil subpackage provides a capturing slog handler and
// license document fixtures for tests.
//
// testutil must not import domain packages so that those packages can use it
// from their own tests.
package shared
