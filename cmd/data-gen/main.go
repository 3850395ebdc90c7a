package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/23skdu/longview/internal/catalog"
)

var (
	out    = flag.String("out", "./data", "Output directory for generated datasets")
	rows   = flag.Int("rows", 100, "Number of rows per dataset")
	dim    = flag.Int("dim", 512, "Vector dimension for the embeddings dataset")
	parts  = flag.Int("parts", 3, "Number of fragments in the events dataset")
	seed   = flag.Int64("seed", 42, "Random seed")
	broken = flag.Bool("broken", false, "Also write a truncated Arrow file to exercise degraded reads")
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	mem := memory.NewGoAllocator()

	if err := writePeople(mem, rng); err != nil {
		log.Fatalf("Failed to write people dataset: %v", err)
	}
	fmt.Printf("Wrote %s (%d rows)\n", filepath.Join(*out, "people.arrow"), *rows)

	if err := writeEmbeddings(rng); err != nil {
		log.Fatalf("Failed to write embeddings dataset: %v", err)
	}
	fmt.Printf("Wrote %s (%d rows, dim %d)\n", filepath.Join(*out, "embeddings.parquet"), *rows, *dim)

	if err := writeEvents(mem, rng); err != nil {
		log.Fatalf("Failed to write events dataset: %v", err)
	}
	fmt.Printf("Wrote %s (%d fragments)\n", filepath.Join(*out, "events"), *parts)

	if *broken {
		if err := writeBroken(mem); err != nil {
			log.Fatalf("Failed to write broken dataset: %v", err)
		}
		fmt.Printf("Wrote %s (truncated)\n", filepath.Join(*out, "broken.arrow"))
	}
}

// writePeople emits a scalar dataset with the kind of messy values the
// viewer exists to inspect: nulls, NaN and infinity in the score column.
func writePeople(mem memory.Allocator, rng *rand.Rand) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "active", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "joined", Type: arrow.FixedWidthTypes.Timestamp_ms},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	ids := b.Field(0).(*array.Int64Builder)
	names := b.Field(1).(*array.StringBuilder)
	scores := b.Field(2).(*array.Float64Builder)
	actives := b.Field(3).(*array.BooleanBuilder)
	joined := b.Field(4).(*array.TimestampBuilder)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	for i := 0; i < *rows; i++ {
		ids.Append(int64(i + 1))
		names.Append("user-" + uuid.NewString()[:8])
		switch i % 17 {
		case 3:
			scores.AppendNull()
		case 7:
			scores.Append(math.NaN())
		case 11:
			scores.Append(math.Inf(1))
		default:
			scores.Append(rng.Float64() * 100)
		}
		actives.Append(i%2 == 0)
		joined.Append(arrow.Timestamp(base + int64(i)*86_400_000))
	}

	rec := b.NewRecordBatch()
	defer rec.Release()
	return catalog.WriteArrowFile(filepath.Join(*out, "people.arrow"), mem, rec)
}

func writeEmbeddings(rng *rand.Rand) error {
	rowsOut := make([]catalog.EmbeddingRow, *rows)
	for i := range rowsOut {
		vec := make([]float32, *dim)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		rowsOut[i] = catalog.EmbeddingRow{
			ID:     int64(i + 1),
			Label:  uuid.NewString(),
			Vector: vec,
		}
	}
	return catalog.WriteParquetFile(filepath.Join(*out, "embeddings.parquet"), rowsOut)
}

// writeEvents emits a directory dataset split across several Arrow fragments.
func writeEvents(mem memory.Allocator, rng *rand.Rand) error {
	dir := filepath.Join(*out, "events")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ms},
		{Name: "kind", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	kinds := []string{"click", "view", "purchase"}
	perPart := *rows / *parts
	if perPart == 0 {
		perPart = 1
	}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	seq := 0
	for p := 0; p < *parts; p++ {
		b := array.NewRecordBuilder(mem, schema)
		ts := b.Field(0).(*array.TimestampBuilder)
		kind := b.Field(1).(*array.StringBuilder)
		value := b.Field(2).(*array.Float64Builder)
		for i := 0; i < perPart; i++ {
			ts.Append(arrow.Timestamp(base + int64(seq)*1000))
			kind.Append(kinds[rng.Intn(len(kinds))])
			value.Append(rng.NormFloat64())
			seq++
		}
		rec := b.NewRecordBatch()
		path := filepath.Join(dir, fmt.Sprintf("part-%03d.arrow", p))
		err := catalog.WriteArrowFile(path, mem, rec)
		rec.Release()
		b.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

// writeBroken writes a valid Arrow file and then truncates it in place.
func writeBroken(mem memory.Allocator) error {
	path := filepath.Join(*out, "broken.arrow")
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3, 4}, nil)
	rec := b.NewRecordBatch()
	defer rec.Release()
	if err := catalog.WriteArrowFile(path, mem, rec); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Truncate(path, info.Size()/2)
}
