package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/textgraph"
	"github.com/poiesic/textgraph/ingestion"
)

// Small sample corpus of multi-paragraph documents. Each entry becomes one
// document whose key is its title.
var documents = map[string]string{
	"lighthouses": `The first lighthouses were simple bonfires lit on hilltops to warn
sailors away from dangerous coastlines. The Pharos of Alexandria, built in
the third century BC, stood over one hundred meters tall and guided ships
into the busiest harbor of the ancient world for sixteen centuries.

Modern lighthouses replaced open flames with Fresnel lenses, which focus a
small lamp into a beam visible for dozens of kilometers. Each lighthouse
flashes a distinct pattern, called its characteristic, so navigators can
tell one station from another at night.

Automation ended the era of the resident keeper. The last staffed
lighthouse in the United States, Boston Light, kept its keeper by an act
of Congress. Most towers today run unattended on solar power, inspected a
few times a year.`,

	"honeybees": `A honeybee colony is a single organism in most of the ways that
matter. Tens of thousands of workers coordinate foraging, brood care, and
temperature control without any central authority. The queen is not a
ruler but an organ, laying up to two thousand eggs a day.

Foragers communicate the location of flowers with the waggle dance. The
angle of the dance encodes the direction of the food relative to the sun,
and its duration encodes the distance. Followers leave the hive and fly
the advertised vector with surprising precision.

In winter the colony clusters around the queen and shivers to generate
heat, consuming the honey stored during summer. A healthy hive enters
spring with just enough workers to restart the cycle.`,

	"typography": `Movable type reached Europe in the fifteenth century, and with it
came the craft of typography. Early typefaces imitated the handwriting of
scribes, but within a generation punchcutters were designing letterforms
that belonged to metal rather than to the pen.

A typeface is measured in points, a unit of about a third of a
millimeter. The space between lines is called leading, after the strips
of lead that once separated rows of type. Kerning adjusts the space
between particular pairs of letters so that the text appears even.

Digital typesetting kept the vocabulary and discarded the metal. The same
optical corrections that punchcutters carved by eye are now encoded in
font files as hinting and kerning tables.`,
}

var (
	dbPath  = flag.String("db", "./textgraph_db", "path to the database directory")
	srcDir  = flag.String("src", "", "directory of .txt files to seed instead of the built-in corpus")
	verbose = flag.Bool("v", false, "enable debug logging")
)

func init() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// documentsFromDir reads every .txt file in a directory as one document.
func documentsFromDir(dir string) ([]ingestion.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []ingestion.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ingestion.Document{
			Key:  strings.TrimSuffix(entry.Name(), ".txt"),
			Text: string(text),
			Options: &ingestion.IngestOptions{
				Type:       "text",
				SourcePath: path,
			},
		})
	}
	return docs, nil
}

func main() {
	engine, err := textgraph.NewEngine(*dbPath)
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	var docs []ingestion.Document
	if *srcDir != "" {
		docs, err = documentsFromDir(*srcDir)
		if err != nil {
			panic(err)
		}
	} else {
		for key, text := range documents {
			docs = append(docs, ingestion.Document{
				Key:     key,
				Text:    text,
				Options: &ingestion.IngestOptions{Type: "text"},
			})
		}
	}

	written, err := pipeline.IngestDocuments(context.Background(), docs)
	if err != nil {
		slog.Error("seeding finished with errors", "err", err)
	}
	slog.Info("seeding complete", "documents", len(written))
}
