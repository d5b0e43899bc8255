package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/scottcagno/memindex/pkg/hashmap/linear"
	"github.com/scottcagno/memindex/pkg/index/bptree"
)

var nKeys = flag.Int("keys", 30, "number of keys to insert")

func main() {
	flag.Parse()

	hm := linear.NewLinHashMap[int, int](11)
	for i := 1; i < *nKeys; i += 2 {
		hm.Put(i, i*i)
	}
	fmt.Print(hm.String())
	for i := 0; i < *nKeys; i++ {
		v, ok := hm.Get(i)
		fmt.Printf("key = %d value = %d (found=%t)\n", i, v, ok)
	}
	fmt.Println("-------------------------------------------")
	fmt.Printf("average buckets accessed = %.2f\n", float64(hm.Accesses())/float64(*nKeys))

	tree := bptree.NewBPTree[int, int]()
	for i := 1; i < 10; i += 2 {
		if err := tree.Put(i, i*i); err != nil {
			log.Printf("put: %v", err)
		}
	}
	fmt.Print(tree.String())
	for i := 0; i < 10; i++ {
		v, ok := tree.Get(i)
		fmt.Printf("key = %d value = %d (found=%t)\n", i, v, ok)
	}
	fmt.Println("-------------------------------------------")
	fmt.Printf("average nodes accessed = %.2f\n", float64(tree.Accesses())/10)
}
