// Package ratelimit implements fixed-window request counters.
//
// # Window semantics
//
// A window opens at the first request seen for a key and covers
// [start, start+Window). Every request inside the window increments the
// count, including rejected ones; the request is allowed while the count is
// at most Limit. The first request at or after start+Window opens a fresh
// window with a count of one.
//
// # Backends
//
//   - MemoryLimiter keeps windows in a capacity-bounded LRU. Increments on one
//     key are serialized by a per-window mutex.
//   - RedisLimiter runs INCR and PEXPIRE in a single Lua script so every
//     instance behind a load balancer shares the same counters.
//
// Expired in-memory windows are dropped passively on the next request and in
// bulk by ScheduleSweep.
package ratelimit
