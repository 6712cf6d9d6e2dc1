// Package bootstrap runs a voxkit binary: it validates the config, starts
// registered components in order, runs lifecycle hooks and shuts down on
// SIGINT or SIGTERM.
//
// Long-running services use Run; CLI commands that do one unit of work use
// RunTask, which shares the same startup and shutdown but returns when the
// task does.
package bootstrap
