// Example of driving the longview API from Go using the client package.
// Start a server first, then: go run docs/client_example.go

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/23skdu/longview/client"
)

func main() {
	c := client.NewClient("http://127.0.0.1:8080")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	names, err := c.ListDatasets(ctx)
	if err != nil {
		log.Fatalf("list datasets: %v", err)
	}
	fmt.Printf("datasets: %v\n", names)

	for _, name := range names {
		schema, err := c.GetSchema(ctx, name)
		if err != nil {
			log.Printf("%s: schema: %v", name, err)
			continue
		}

		fmt.Printf("\n%s\n", name)
		for _, f := range schema.Fields {
			if f.VectorDim != nil {
				fmt.Printf("  %s %s dim=%d\n", f.Name, f.Type, *f.VectorDim)
			} else {
				fmt.Printf("  %s %s\n", f.Name, f.Type)
			}
		}

		page, err := c.GetRows(ctx, name, client.RowsQuery{Limit: 5})
		if err != nil {
			log.Printf("%s: rows: %v", name, err)
			continue
		}
		fmt.Printf("  %d rows total, showing %d\n", page.Total, len(page.Rows))
		for _, row := range page.Rows {
			fmt.Printf("  %v\n", row)
		}
	}
}
