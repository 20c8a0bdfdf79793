// Package fetch contains the transports used to pull remote template
// catalogues: HTTPFetcher issues plain and conditional (If-None-Match) GETs,
// GitFetcher maintains shallow working copies through go-git and can compare
// remote refs without downloading objects. Neither fetcher touches the cache;
// callers decide what to persist.
package fetch
