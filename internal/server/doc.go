// Package server hosts the optional Fiber diagnostics service. It wires the
// configured cache store, validator and template registry into one Runtime
// and exposes the router constructor that main and the routes package share.
// Keep exports narrow: routes receive explicit dependencies instead of
// reaching into globals.
package server
