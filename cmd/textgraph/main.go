// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/textgraph"
	"github.com/poiesic/textgraph/ai"
	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "textgraph",
		Usage: "Graph-ordered document retrieval over chunked text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a text file as a document",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "key",
						Usage: "Stable document key (defaults to the file path)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Document type attribute",
						Value: "text",
					},
					&cli.StringFlag{
						Name:  "domain",
						Usage: "Document domain attribute",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search ingested documents",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Search strategy (vector, hybrid, vector-context)",
						Value:   "hybrid",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
				),
			},
			{
				Name:      "answer",
				Usage:     "Answer a question from ingested documents",
				ArgsUsage: "QUESTION",
				Action:    answerCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Search strategy (vector, hybrid, vector-context)",
						Value:   "vector-context",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of passages",
						Value:   6,
					},
				),
			},
			{
				Name:      "chunk",
				Usage:     "Print the text of a chunk by ID",
				ArgsUsage: "CHUNK_ID",
				Action:    chunkCommand,
				Flags:     storeFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens the store.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "summarizer-host",
			Usage: "Summarizer service host URL (defaults to embedding-host)",
		},
		&cli.StringFlag{
			Name:  "summarizer-model",
			Usage: "Summarizer model name",
			Value: "qwen2.5:3b",
		},
	}
}

func openEngine(c *cli.Context) (*textgraph.Engine, error) {
	summarizerHost := c.String("summarizer-host")
	if summarizerHost == "" {
		summarizerHost = c.String("embedding-host")
	}

	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummarizerHost(summarizerHost),
		ai.WithSummarizerModel(c.String("summarizer-model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	engine, err := textgraph.NewEngine(c.String("db"), textgraph.WithAIConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("file argument is required")
	}
	filePath := c.Args().First()

	var text []byte
	var err error
	if filePath == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	key := c.String("key")
	if key == "" {
		key = filePath
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	doc, err := engine.Ingest(context.Background(), key, string(text), &ingestion.IngestOptions{
		Type:       c.String("type"),
		Domain:     c.String("domain"),
		SourcePath: filePath,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("ingested %s (document %d)\n", doc.Key, uint64(doc.Id))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("query argument is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.Search(context.Background(), query, c.String("strategy"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%2d. [%.3f %s] chunk %d (document %d, position %d)\n",
			i+1, result.Score, result.Branch,
			uint64(result.Chunk.Id), uint64(result.Chunk.DocumentId), result.Chunk.Position)
		fmt.Printf("    %s\n", snippet(result.Chunk.Text, 160))
	}
	return nil
}

func answerCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("question argument is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	response, err := engine.Answer(context.Background(), question, c.String("strategy"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	fmt.Println(response)
	return nil
}

func chunkCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("chunk ID argument is required")
	}
	rawID, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chunk ID: %w", err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	text, found, err := engine.ChunkText(context.Background(), core.ID(rawID))
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("chunk not found")
		return nil
	}

	fmt.Println(text)
	return nil
}

// snippet collapses whitespace and truncates text for one-line display.
func snippet(text string, max int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) > max {
		return collapsed[:max] + "..."
	}
	return collapsed
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
