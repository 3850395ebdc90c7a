package main

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

type Record struct {
	ID     int64     `parquet:"id"`
	Label  string    `parquet:"label"`
	Vector []float32 `parquet:"vector"`
}

func main() {
	f, err := os.Create("crash_test.parquet")
	if err != nil {
		panic(err)
	}
	// Do NOT defer close, we want to simulate a crash

	w := parquet.NewGenericWriter[Record](f)

	// Write 100 records
	for i := 0; i < 100; i++ {
		vec := make([]float32, 8)
		for j := range vec {
			vec[j] = float32(i*8+j) * 0.01
		}
		_, err := w.Write([]Record{
			{ID: int64(i), Label: fmt.Sprintf("record_%d", i), Vector: vec},
		})
		if err != nil {
			panic(err)
		}
	}

	// Force a sync to disk to ensure bytes are there, but DO NOT close the writer (no footer)
	_ = f.Sync()

	fmt.Println("Wrote 100 records. Simulating crash (exiting without Close)...")
	os.Exit(0)
}
