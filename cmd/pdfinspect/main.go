// Command pdfinspect prints what the pipeline sees in a PDF: text, pages,
// detected tables, chunks and form widgets, as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pa-autofill/internal/chunk"
	"github.com/joseph-ayodele/pa-autofill/internal/pdf"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	withText := flag.Bool("text", false, "include the raw text")
	chunkSize := flag.Int("chunk-size", chunk.DefaultSize, "chunk size in characters")
	chunkOverlap := flag.Int("chunk-overlap", chunk.DefaultOverlap, "chunk overlap in characters")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: pdfinspect [flags] <file.pdf>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	if err := pdf.ValidatePDFPath(path); err != nil {
		logger.Error("invalid input", "path", path, "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ext, err := pdf.NewDefaultExtractor(logger)
	if err != nil {
		logger.Error("pdf backends unavailable", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	doc := ext.Extract(ctx, path)
	doc.Chunks = chunk.New(*chunkSize, *chunkOverlap).ChunkPages(doc.Pages)
	if !*withText {
		doc.RawText = ""
	}

	logger.Info("pdf.inspect.ok",
		"path", path,
		"pages", len(doc.Pages),
		"chunks", len(doc.Chunks),
		"widgets", len(doc.Widgets),
		"text_method", doc.Metadata["text_method"],
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
