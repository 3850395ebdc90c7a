package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longview/internal/catalog"
	"github.com/23skdu/longview/internal/logging"
)

var (
	root   = flag.String("root", "./data", "Dataset root directory")
	outDir = flag.String("out", "", "Output directory (defaults to the root)")
	dryRun = flag.Bool("dry-run", false, "List datasets without writing")
)

// Rewrites every readable dataset under -root as a single Arrow IPC file.
// Fragmented directory datasets and parquet files are folded into one
// .arrow file each; unreadable datasets are reported and skipped.
func main() {
	flag.Parse()
	if *outDir == "" {
		*outDir = *root
	}

	logger := logging.New(logging.Config{Level: "warn", Format: "console", Output: os.Stderr})
	mem := memory.NewGoAllocator()
	cat := catalog.New(*root, mem, logger)

	names, err := cat.List()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d datasets under %s\n", len(names), *root)

	compacted := 0
	for _, name := range names {
		if *dryRun {
			fmt.Printf("  %s\n", name)
			continue
		}
		if err := compact(cat, mem, name); err != nil {
			fmt.Printf("  %s: %v\n", name, err)
			continue
		}
		compacted++
		fmt.Printf("  %s: ok\n", name)
	}
	fmt.Printf("Compacted %d/%d datasets\n", compacted, len(names))
}

func compact(cat *catalog.Catalog, mem memory.Allocator, name string) error {
	ds, err := cat.Open(name)
	if err != nil {
		return err
	}
	defer ds.Release()

	recs, err := ds.ReadAll(context.Background())
	if err != nil {
		return err
	}

	out := filepath.Join(*outDir, name+".arrow")
	return catalog.WriteArrowFile(out, mem, recs...)
}
