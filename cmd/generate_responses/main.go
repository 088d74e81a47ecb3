package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/ahrav/go-catsurv/internal/application"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/testutils"
)

func main() {
	var (
		size       = flag.Int("size", 500, "Number of respondents to simulate")
		items      = flag.Int("items", 20, "Number of items in a generated bank")
		categories = flag.Int("categories", 4, "Response options per polytomous item")
		model      = flag.String("model", "ltm", "IRT model: ltm, tpm, grm or gpcm")
		config     = flag.String("config", "", "Session file whose item bank is used instead of a generated one")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		outputPath = flag.String("output", "testdata/responses/dataset.json", "Output file path")
	)
	flag.Parse()

	m, err := application.ParseModel(*model)
	if err != nil {
		log.Fatalf("Invalid model: %v", err)
	}

	var bank []domain.Item
	if *config != "" {
		cfg, err := application.LoadConfigFile(*config)
		if err != nil {
			log.Fatalf("Failed to load session file: %v", err)
		}
		m, bank = cfg.Model, cfg.Items
	} else {
		bank = testutils.GenerateItemBank(m, *items, *categories, *seed)
	}

	dataset, err := testutils.GenerateResponseDataset(m, bank, *size, *seed)
	if err != nil {
		log.Fatalf("Failed to generate responses: %v", err)
	}
	if err := testutils.SaveResponseDataset(dataset, *outputPath); err != nil {
		log.Fatalf("Failed to save dataset: %v", err)
	}

	csvPath := filepath.Join(filepath.Dir(*outputPath), "responses.csv")
	if err := testutils.WriteResponsesCSV(dataset, csvPath); err != nil {
		log.Fatalf("Failed to save response table: %v", err)
	}

	fmt.Printf("Generated response dataset:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Response table: %s\n", csvPath)
	fmt.Printf("- Model: %s\n", m)
	fmt.Printf("- Items: %d\n", len(bank))
	fmt.Printf("- Respondents: %d\n", dataset.Metadata.Size)
	fmt.Printf("- Seed: %d\n", *seed)
}
