// Command train runs the offline intent-model training stage: it builds the
// vocabulary and class list from the response catalog's patterns, fits the
// feed-forward network, and writes the three model artifacts.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/intent"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	catalogPath := flag.String("catalog", "./data/intents.json", "path to the response catalog")
	modelDir := flag.String("out", "./data/model", "output directory for model artifacts")
	epochs := flag.Int("epochs", 200, "training epochs")
	learningRate := flag.Float64("lr", 0.01, "learning rate")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		slog.Error("Failed to load catalog", "error", err, "path", *catalogPath)
		os.Exit(1)
	}

	opts := intent.DefaultTrainOptions()
	opts.Epochs = *epochs
	opts.LearningRate = *learningRate
	opts.Seed = *seed

	slog.Info("Training intent model", "intents", len(cat.Entries), "epochs", opts.Epochs, "lr", opts.LearningRate)

	net, vocab, classes, err := intent.Train(cat, opts)
	if err != nil {
		slog.Error("Training failed", "error", err)
		os.Exit(1)
	}

	if err := intent.SaveArtifacts(*modelDir, net, vocab, classes); err != nil {
		slog.Error("Failed to save model artifacts", "error", err)
		os.Exit(1)
	}

	slog.Info("Model trained and saved",
		"model_dir", *modelDir,
		"vocabulary", len(vocab),
		"classes", len(classes),
	)
}
