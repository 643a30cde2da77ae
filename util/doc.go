// Package util holds small helpers shared by the config, metrics and plugin
// packages: slice and map utilities, list parsing, secret masking and atomic
// file replacement.
package util
