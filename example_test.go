package vecdisk_test

import (
	"context"
	"fmt"
	"log"

	"github.com/vecdisk/vecdisk"
	"github.com/vecdisk/vecdisk/blockstore"
)

func Example() {
	ctx := context.Background()
	store := blockstore.NewMemoryStore()

	ix, err := vecdisk.Create(ctx, store, vecdisk.DefaultCreateOptions(3))
	if err != nil {
		log.Fatal(err)
	}
	defer ix.Close()

	vectors := map[uint64][]float32{
		1: {1, 0, 0},
		2: {0, 1, 0},
		3: {0, 0, 1},
	}
	for id, v := range vectors {
		if err := ix.Insert(ctx, id, v); err != nil {
			log.Fatal(err)
		}
	}

	results, err := ix.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(results[0].ID, results[0].Distance)
	// Output: 1 0
}
