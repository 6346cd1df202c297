// Package config resolves the installer's settings.
//
// Settings come from four layers, each overriding the previous one:
//
//  1. Built-in defaults (Default)
//  2. An optional Lua file, run in a sandboxed gopher-lua VM
//  3. The environment (NODE_JQ_SKIP_INSTALL_BINARY, JQ_INSTALL_CONFIG)
//  4. Command-line flags, applied by the caller
//
// # Lua configuration
//
// The file must assign a global jq_install table. A read-only platform
// table describing the host is available while it runs:
//
//	jq_install = {
//	    version = "jq-1.7.1",
//	    verify  = platform.when(platform.is_linux, "sha256"),
//	    jobs    = 4,
//	}
//
// The VM has no os, io, require, load* or debug, so a configuration
// file cannot touch the filesystem or run commands.
//
// # Logging
//
// Logger is the structured logging interface used across the module.
// It matches the key/value methods of zap's SugaredLogger; NopLogger is
// used when no logger is supplied.
package config
