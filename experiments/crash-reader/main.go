package main

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longview/internal/catalog"
	"github.com/23skdu/longview/internal/logging"
	"github.com/23skdu/longview/internal/reader"
)

func main() {
	stat, err := os.Stat("crash_test.parquet")
	if err != nil {
		panic(err)
	}
	fmt.Printf("File size: %d bytes\n", stat.Size())

	logger := logging.New(logging.Config{Level: "warn", Format: "console", Output: os.Stderr})
	cat := catalog.New(".", memory.NewGoAllocator(), logger)

	ds, err := cat.Open("crash_test")
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer ds.Release()

	w, err := reader.New(logger, reader.DefaultChunkRows).ReadWindow(context.Background(), ds, nil, 0, 10)
	if err != nil {
		fmt.Printf("Read failed: %v\n", err)
		return
	}
	defer w.Release()

	fmt.Printf("Served tier: %s, total rows: %d\n", w.Tier, w.Total)
	for _, rec := range w.Records {
		fmt.Printf("  batch with %d rows\n", rec.NumRows())
	}
	for _, syn := range w.Synthetic {
		fmt.Printf("  %s: %s\n", syn.Status, syn.Message)
	}
}
