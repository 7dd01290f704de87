package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/nlp"
)

// TrainOptions controls the offline training stage.
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	Hidden1      int
	Hidden2      int
	Seed         uint64
}

// DefaultTrainOptions mirrors the shipped model's hyperparameters.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:       200,
		LearningRate: 0.01,
		Hidden1:      128,
		Hidden2:      64,
		Seed:         1,
	}
}

// Train builds the vocabulary and class list from the catalog's training
// patterns and fits the feed-forward network with plain SGD over a
// cross-entropy loss. It returns the network plus the vocabulary and class
// list that must be stored alongside it.
func Train(cat *catalog.Catalog, opts TrainOptions) (*Network, []string, []string, error) {
	if opts.Epochs <= 0 || opts.LearningRate <= 0 || opts.Hidden1 <= 0 || opts.Hidden2 <= 0 {
		return nil, nil, nil, fmt.Errorf("invalid training options: %+v", opts)
	}

	vocabSet := make(map[string]struct{})
	classSet := make(map[string]struct{})
	type document struct {
		tokens []string
		tag    string
	}
	var docs []document

	for _, e := range cat.Entries {
		classSet[e.Tag] = struct{}{}
		for _, pattern := range e.Patterns {
			tokens := nlp.Tokenize(pattern)
			for _, t := range tokens {
				vocabSet[t] = struct{}{}
			}
			docs = append(docs, document{tokens: tokens, tag: e.Tag})
		}
	}
	if len(docs) == 0 {
		return nil, nil, nil, fmt.Errorf("catalog has no training patterns")
	}

	vocab := sortedKeys(vocabSet)
	classes := sortedKeys(classSet)

	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	inputs := make([][]float64, len(docs))
	labels := make([]int, len(docs))
	for i, d := range docs {
		inputs[i] = nlp.Vector(d.tokens, vocab)
		labels[i] = classIndex[d.tag]
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	net := newNetwork(rng, len(vocab), opts.Hidden1, opts.Hidden2, len(classes))

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, idx := range order {
			sgdStep(net, inputs[idx], labels[idx], opts.LearningRate)
		}
	}

	if err := net.compile(); err != nil {
		return nil, nil, nil, fmt.Errorf("trained network failed validation: %w", err)
	}
	return net, vocab, classes, nil
}

// SaveArtifacts writes the three model files into dir.
func SaveArtifacts(dir string, net *Network, vocab, classes []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, NetworkFile), net); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, VocabFile), vocab); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, ClassesFile), classes)
}

func newNetwork(rng *rand.Rand, in, h1, h2, out int) *Network {
	return &Network{Layers: []Layer{
		randomLayer(rng, h1, in, ActivationReLU),
		randomLayer(rng, h2, h1, ActivationReLU),
		randomLayer(rng, out, h2, ActivationSoftmax),
	}}
}

func randomLayer(rng *rand.Rand, rows, cols int, activation string) Layer {
	scale := math.Sqrt(2.0 / float64(cols))
	weights := make([][]float64, rows)
	for r := range weights {
		row := make([]float64, cols)
		for c := range row {
			row[c] = rng.NormFloat64() * scale
		}
		weights[r] = row
	}
	return Layer{
		Weights:    weights,
		Biases:     make([]float64, rows),
		Activation: activation,
	}
}

// sgdStep runs one forward/backward pass and updates weights in place.
func sgdStep(net *Network, input []float64, label int, lr float64) {
	activations := make([][]float64, len(net.Layers)+1)
	preActs := make([][]float64, len(net.Layers))
	activations[0] = input

	for l, layer := range net.Layers {
		out := make([]float64, len(layer.Weights))
		for j, row := range layer.Weights {
			sum := layer.Biases[j]
			for i, w := range row {
				sum += w * activations[l][i]
			}
			out[j] = sum
		}
		preActs[l] = append([]float64(nil), out...)
		switch layer.Activation {
		case ActivationReLU:
			relu(out)
		case ActivationSoftmax:
			softmax(out)
		}
		activations[l+1] = out
	}

	// Output delta for softmax with cross-entropy is probs minus one-hot.
	last := len(net.Layers) - 1
	delta := append([]float64(nil), activations[last+1]...)
	delta[label] -= 1

	for l := last; l >= 0; l-- {
		layer := &net.Layers[l]
		prev := activations[l]

		var nextDelta []float64
		if l > 0 {
			nextDelta = make([]float64, len(prev))
			for i := range prev {
				sum := 0.0
				for j := range layer.Weights {
					sum += layer.Weights[j][i] * delta[j]
				}
				if preActs[l-1][i] <= 0 {
					sum = 0
				}
				nextDelta[i] = sum
			}
		}

		for j := range layer.Weights {
			for i := range layer.Weights[j] {
				layer.Weights[j][i] -= lr * delta[j] * prev[i]
			}
			layer.Biases[j] -= lr * delta[j]
		}

		delta = nextDelta
	}

	// Invalidate any cached inference matrices.
	net.dense = nil
	net.bias = nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
