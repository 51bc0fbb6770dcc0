package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/distance"
	"github.com/vecdisk/vecdisk/internal/searcher"
)

func newTestEngine(t *testing.T, dims, maxNeighbors int) (*Engine, *blockstore.MemoryStore) {
	t.Helper()
	cfg := Config{
		IndexID:        uuid.New(),
		Dims:           dims,
		Metric:         distance.MetricL2,
		MaxNeighbors:   maxNeighbors,
		Alpha:          1.2,
		InsertListSize: 32,
		SearchListSize: 32,
	}
	store := blockstore.NewMemoryStore()
	e, err := New(cfg, store, 64, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, store
}

func randomVectors(n, dims int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	return vecs
}

// bruteForce returns the ids of the k nearest vectors by exact L2 distance.
func bruteForce(vecs [][]float32, query []float32, k int) []uint64 {
	type pair struct {
		id   uint64
		dist float32
	}
	pairs := make([]pair, len(vecs))
	for i, v := range vecs {
		pairs[i] = pair{id: uint64(i + 1), dist: distance.L2(query, v)}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
	if k > len(pairs) {
		k = len(pairs)
	}
	ids := make([]uint64, k)
	for i := range ids {
		ids[i] = pairs[i].id
	}
	return ids
}

func recallAtK(got []searcher.Candidate, want []uint64) float64 {
	truth := make(map[uint64]struct{}, len(want))
	for _, id := range want {
		truth[id] = struct{}{}
	}
	hits := 0
	for _, c := range got {
		if _, ok := truth[c.ID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

func TestInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 3, 4)

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
	for i, v := range vecs {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}

	results, err := e.Search(ctx, []float32{1, 0, 0}, 4, 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Search() returned %d results, want 4", len(results))
	}
	if results[0].ID != 1 {
		t.Errorf("closest result = %d, want 1", results[0].ID)
	}
	if results[0].Distance > 1e-6 {
		t.Errorf("closest distance = %g, want ~0", results[0].Distance)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted ascending at %d: %g < %g",
				i, results[i].Distance, results[i-1].Distance)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	e, _ := newTestEngine(t, 3, 4)
	results, err := e.Search(context.Background(), []float32{1, 0, 0}, 4, 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search() on empty index returned %d results, want 0", len(results))
	}
}

func TestInsertValidation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 3, 4)

	if err := e.Insert(ctx, 1, []float32{1, 2}); err == nil {
		t.Fatal("Insert() with short vector succeeded, want dimension error")
	} else {
		var dm *DimensionMismatchError
		if !errors.As(err, &dm) {
			t.Fatalf("Insert() error = %v, want DimensionMismatchError", err)
		}
		if dm.Expected != 3 || dm.Actual != 2 {
			t.Errorf("mismatch = %d/%d, want 3/2", dm.Expected, dm.Actual)
		}
	}

	if err := e.Insert(ctx, 1, []float32{1, 0, 0}); err != nil {
		t.Fatalf("Insert(1) error = %v", err)
	}
	if err := e.Insert(ctx, 1, []float32{0, 1, 0}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate Insert(1) error = %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteRemovesBackEdges(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 3, 4)

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
	for i, v := range vecs {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}
	before, err := e.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}

	if err := e.Delete(ctx, 4); err != nil {
		t.Fatalf("Delete(4) error = %v", err)
	}

	after, err := e.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if after != before-1 {
		t.Errorf("Count() = %d after delete, want %d", after, before-1)
	}

	for _, id := range []uint64{1, 2, 3} {
		buf, err := store.ReadBlock(ctx, id)
		if err != nil {
			t.Fatalf("ReadBlock(%d) error = %v", id, err)
		}
		blk, err := e.layout.Wrap(buf)
		if err != nil {
			t.Fatalf("Wrap(%d) error = %v", id, err)
		}
		if blk.FindEdge(4) >= 0 {
			t.Errorf("node %d still holds a back-edge to deleted node 4", id)
		}
	}

	if err := e.Delete(ctx, 4); !errors.Is(err, blockstore.ErrNotFound) {
		t.Fatalf("Delete(4) again error = %v, want ErrNotFound", err)
	}
}

func TestDanglingEdgeTolerance(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 4, 8)

	vecs := randomVectors(30, 4, 7)
	for i, v := range vecs {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}

	// Rip out a third of the blocks behind the engine's back, leaving
	// every edge toward them dangling. Traversal must skip them silently.
	for id := uint64(1); id <= 10; id++ {
		if err := store.DeleteBlock(ctx, id); err != nil {
			t.Fatalf("DeleteBlock(%d) error = %v", id, err)
		}
		if err := e.cache.Drop(id); err != nil {
			t.Fatalf("Drop(%d) error = %v", id, err)
		}
	}

	for i := 10; i < 30; i++ {
		results, err := e.Search(ctx, vecs[i], 5, 20)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) == 0 {
			t.Fatalf("Search() found nothing from query %d", i)
		}
		for _, r := range results {
			if r.ID <= 10 {
				t.Errorf("Search() returned deleted node %d", r.ID)
			}
		}
	}
}

func TestDegreeBoundAfterWorkload(t *testing.T) {
	ctx := context.Background()
	const maxNeighbors = 8
	e, store := newTestEngine(t, 8, maxNeighbors)

	vecs := randomVectors(100, 8, 11)
	for i, v := range vecs {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}
	for id := uint64(1); id <= 100; id += 7 {
		if err := e.Delete(ctx, id); err != nil {
			t.Fatalf("Delete(%d) error = %v", id, err)
		}
	}

	for id := uint64(1); id <= 100; id++ {
		buf, err := store.ReadBlock(ctx, id)
		if errors.Is(err, blockstore.ErrNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("ReadBlock(%d) error = %v", id, err)
		}
		blk, err := e.layout.Wrap(buf)
		if err != nil {
			t.Fatalf("Wrap(%d) error = %v", id, err)
		}
		if blk.EdgeCount() > maxNeighbors {
			t.Errorf("node %d has %d edges, bound is %d", id, blk.EdgeCount(), maxNeighbors)
		}
	}
}

func TestFilteredSearchBridges(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1, 4)

	// Points on a line. Only the far end matches the filter, so the
	// traversal must cross non-matching nodes to reach it.
	for i := 0; i < 10; i++ {
		if err := e.Insert(ctx, uint64(i+1), []float32{float32(i)}); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}

	admit := func(id uint64) bool { return id == 10 }
	results, err := e.SearchFiltered(ctx, []float32{0}, 1, 4, admit)
	if err != nil {
		t.Fatalf("SearchFiltered() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != 10 {
		t.Fatalf("SearchFiltered() = %v, want the single matching node 10", results)
	}
}

func TestBatchInsertRecall(t *testing.T) {
	ctx := context.Background()
	const n, dims, k = 200, 8, 10
	vecs := randomVectors(n, dims, 42)
	queries := randomVectors(20, dims, 43)

	sequential, _ := newTestEngine(t, dims, 16)
	for i, v := range vecs {
		if err := sequential.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("sequential Insert(%d) error = %v", i+1, err)
		}
	}

	batched, _ := newTestEngine(t, dims, 16)
	if err := batched.BeginBatch(); err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	for i, v := range vecs {
		if err := batched.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("batched Insert(%d) error = %v", i+1, err)
		}
	}
	if _, err := batched.EndBatch(ctx); err != nil {
		t.Fatalf("EndBatch() error = %v", err)
	}

	var seqRecall, batchRecall float64
	for _, q := range queries {
		truth := bruteForce(vecs, q, k)

		got, err := sequential.Search(ctx, q, k, 50)
		if err != nil {
			t.Fatalf("sequential Search() error = %v", err)
		}
		seqRecall += recallAtK(got, truth)

		got, err = batched.Search(ctx, q, k, 50)
		if err != nil {
			t.Fatalf("batched Search() error = %v", err)
		}
		batchRecall += recallAtK(got, truth)
	}
	seqRecall /= float64(len(queries))
	batchRecall /= float64(len(queries))

	// Batch repair reorders pruning, so the graphs differ; recall must not.
	if seqRecall < 0.6 {
		t.Errorf("sequential recall@%d = %.2f, want >= 0.6", k, seqRecall)
	}
	if batchRecall < 0.6 {
		t.Errorf("batched recall@%d = %.2f, want >= 0.6", k, batchRecall)
	}
	if diff := seqRecall - batchRecall; diff > 0.25 || diff < -0.25 {
		t.Errorf("recall gap sequential %.2f vs batched %.2f exceeds tolerance", seqRecall, batchRecall)
	}
}

func TestBatchConnectivity(t *testing.T) {
	ctx := context.Background()
	const n = 20
	e, store := newTestEngine(t, 4, 12)

	vecs := randomVectors(n, 4, 99)
	if err := e.BeginBatch(); err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	for i, v := range vecs {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}
	if _, err := e.EndBatch(ctx); err != nil {
		t.Fatalf("EndBatch() error = %v", err)
	}

	edges := make(map[uint64][]uint64, n)
	for id := uint64(1); id <= n; id++ {
		buf, err := store.ReadBlock(ctx, id)
		if err != nil {
			t.Fatalf("ReadBlock(%d) error = %v", id, err)
		}
		blk, err := e.layout.Wrap(buf)
		if err != nil {
			t.Fatalf("Wrap(%d) error = %v", id, err)
		}
		if blk.EdgeCount() == 0 {
			t.Errorf("node %d has no edges after batch insert", id)
		}
		for i := 0; i < blk.EdgeCount(); i++ {
			edges[id] = append(edges[id], blk.EdgeTarget(i))
		}
	}

	// Every node must reach every other by following edges.
	for start := uint64(1); start <= n; start++ {
		reached := map[uint64]struct{}{start: {}}
		queue := []uint64{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range edges[cur] {
				if _, ok := reached[next]; !ok {
					reached[next] = struct{}{}
					queue = append(queue, next)
				}
			}
		}
		if len(reached) != n {
			t.Errorf("node %d reaches only %d of %d nodes", start, len(reached), n)
		}
	}
}

func TestAbortBatchDiscardsEdges(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 4, 8)

	for i, v := range randomVectors(5, 4, 3) {
		if err := e.Insert(ctx, uint64(i+1), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+1, err)
		}
	}

	if err := e.BeginBatch(); err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	if err := e.BeginBatch(); !errors.Is(err, ErrBatchActive) {
		t.Fatalf("nested BeginBatch() error = %v, want ErrBatchActive", err)
	}
	for i, v := range randomVectors(5, 4, 4) {
		if err := e.Insert(ctx, uint64(i+6), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i+6, err)
		}
	}
	e.AbortBatch()
	if e.InBatch() {
		t.Fatal("InBatch() = true after abort")
	}

	// EndBatch after abort is a no-op.
	if _, err := e.EndBatch(ctx); err != nil {
		t.Fatalf("EndBatch() after abort error = %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blockstore.NewMemoryStore()

	want := Config{
		IndexID:        uuid.New(),
		Dims:           128,
		Metric:         distance.MetricCosine,
		MaxNeighbors:   64,
		Alpha:          1.5,
		InsertListSize: 128,
		SearchListSize: 100,
		BlockSize:      37488,
	}
	if err := SaveConfig(ctx, store, want); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	got, err := LoadConfig(ctx, store)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadConfig() = %+v, want %+v", got, want)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(context.Background(), blockstore.NewMemoryStore())
	if !errors.Is(err, blockstore.ErrNotFound) {
		t.Fatalf("LoadConfig() error = %v, want ErrNotFound", err)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		Dims:           4,
		Metric:         distance.MetricL2,
		MaxNeighbors:   8,
		Alpha:          1.2,
		InsertListSize: 16,
		SearchListSize: 16,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := base
	bad.Dims = 0
	if err := bad.Validate(); !errors.Is(err, ErrConfig) {
		t.Errorf("zero dims: error = %v, want ErrConfig", err)
	}
	bad = base
	bad.Alpha = 0.5
	if err := bad.Validate(); !errors.Is(err, ErrConfig) {
		t.Errorf("alpha below 1: error = %v, want ErrConfig", err)
	}
	bad = base
	bad.Metric = distance.Metric(42)
	if err := bad.Validate(); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown metric: error = %v, want ErrConfig", err)
	}
}
