// Package heap supplies a general-purpose process heap allocator: a
// drop-in engine behind malloc/calloc/realloc/free/aligned_alloc/
// posix_memalign/malloc_usable_size semantics.
//
// The engine is a two-level design. Requests below a zone limit are
// served by a slab engine: sizes are mapped to one of a fixed set of
// size-classes, each backed by a per-process list of 64KiB zones
// subdivided into equal chunks, fronted by a per-"thread" pair of
// magazines that cycle through a per-size-class depot without
// touching a lock on the fast path. Requests at or above the zone
// limit, or any non-trivial page-aligned request, go through a
// bigalloc path: a chained, sharded bookkeeping table keyed by base
// address, backed by a small bounded reuse cache that retains
// recently freed large buffers and reclaims excess committed bytes
// once an accounting threshold is crossed.
//
// Types and functions in this package are safe for concurrent use
// unless documented otherwise. Per-"thread" caches obtained from
// BindThread are not safe for concurrent use by themselves — bind one
// per goroutine/worker, the same way a caller would pin one per OS
// thread in a C embedding.
package heap

// TODO: BIGCACHE_EXCESS sweep walks every shard lock in bucket order;
// under heavy bigalloc churn on very large heaps this becomes the
// single most contended path. Revisit with a per-shard excess counter
// if that shows up in profiling.
