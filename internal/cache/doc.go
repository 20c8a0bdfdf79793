// Package cache defines the disk-backed template cache. Every (source id,
// template name) pair maps to CacheDir/<hash16> (content blob) plus
// CacheDir/<hash16>.meta.json (metadata sidecar). The store only persists and
// reads entries; freshness is decided by Validator, and Revalidator drives the
// HTTP/git fetchers to refresh stale entries cheaply. Callers outside this
// package never touch cache files directly.
package cache
