// Package resolver turns layered agent configuration into live provider
// handles for one session.
//
// Each capability has a registry of named constructors (the Catalog). For a
// requested provider the resolver:
//
//  1. fails with UNSUPPORTED_PROVIDER when the name is not registered;
//  2. fails with CONFIGURATION_ERROR when an extra parameter is not one the
//     provider understands;
//  3. falls back to the capability's built-in provider, logging a warning,
//     when the required credential is missing;
//  4. wraps the handle with logging, tracing, metrics and the session's
//     resilience policy.
//
// Resolution never mutates the configuration it is given.
package resolver
