// Package vecdisk provides a disk-resident approximate nearest-neighbor
// index for Go.
//
// Vecdisk builds a Vamana-style navigable graph over fixed-dimension float32
// vectors keyed by 64-bit rowids. Nodes live in fixed-size blocks inside a
// host-provided key/value block store; a bounded reference-counted cache
// keeps the hot part of the graph in memory, so the full dataset never has
// to fit in RAM.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := bolt.Open("./index.db")
//	defer store.Close()
//
//	ix, _ := vecdisk.Create(ctx, store, vecdisk.DefaultCreateOptions(128))
//	defer ix.Close()
//
//	_ = ix.Insert(ctx, 1, vector)
//	results, _ := ix.Search(ctx, query, 10)
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Distance)
//	}
//
// Re-open an existing index with vecdisk.Open; the configuration is read
// back from the store's metadata.
//
// # Bulk Loading
//
// Batch mode defers back-edge writes and applies them in one sorted pass at
// batch end, turning scattered per-edge flushes into one flush per affected
// node:
//
//	_ = ix.BeginBatch()
//	for id, v := range vectors {
//	    _ = ix.Insert(ctx, id, v)
//	}
//	_ = ix.EndBatch(ctx)
//
// # Filtered Search
//
// SearchFiltered takes an opaque rowid predicate. The predicate gates
// results only, never traversal, so non-matching nodes still bridge the walk
// into matching regions of the graph:
//
//	results, _ := ix.SearchFiltered(ctx, query, 10, func(id uint64) bool {
//	    return allowed[id]
//	})
//
// # Concurrency and Durability
//
// The index is single-threaded and cooperative: the caller serializes all
// calls against one instance. Durability, transactions and crash recovery
// belong to the host store; mutating operations are expected to run inside a
// host transaction, and on error the caller rolls the host back. Deletes do
// not repair the graph beyond removing direct back-edges; traversal
// tolerates the resulting dangling edges, and heavy-delete workloads should
// rebuild the index periodically.
package vecdisk
