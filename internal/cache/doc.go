// Package cache keeps fetched audio clips so remote datasets play without
// refetching. It has an in-memory LRU cache (L1) in front of a persistent,
// zstd-compressed disk cache (L2) with age-based cleanup.
package cache
