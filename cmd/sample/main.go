// Command sample trims a large JSONL dataset down to its first N
// records, dropping the inline image payload so the sample stays
// small; the importer fetches images by URL instead.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"os"
)

func main() {
	var (
		in    string
		out   string
		limit int
	)
	flag.StringVar(&in, "in", "", "Input JSONL dataset")
	flag.StringVar(&out, "out", "sample.jsonl", "Output JSONL sample")
	flag.IntVar(&limit, "limit", 1000, "Number of records to keep")
	flag.Parse()
	if in == "" {
		log.Fatal("usage: sample -in dataset.jsonl [-out sample.jsonl] [-limit 1000]")
	}

	src, err := os.Open(in)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer dst.Close()

	w := bufio.NewWriter(dst)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	kept := 0
	for scanner.Scan() && kept < limit {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			log.Printf("skipping malformed line: %v", err)
			continue
		}
		delete(record, "image")
		line, err := json.Marshal(record)
		if err != nil {
			log.Fatalf("encode record: %v", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			log.Fatalf("write output: %v", err)
		}
		kept++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("flush output: %v", err)
	}
	log.Printf("wrote %d records to %s", kept, out)
}
