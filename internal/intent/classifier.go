// Package intent maps user messages to labels from a fixed taxonomy using a
// small feed-forward network over a bag-of-words vocabulary. The serialized
// network, vocabulary and class list are separate artifacts that must stay
// mutually consistent; Load refuses mismatched dimensions.
package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crispdesk/supportbot/internal/domain"
	"github.com/crispdesk/supportbot/internal/nlp"
)

// Artifact file names under the model directory.
const (
	NetworkFile = "network.json"
	VocabFile   = "vocab.json"
	ClassesFile = "classes.json"
)

// Classifier predicts intents and remembers the confidence of the most
// recent prediction.
type Classifier struct {
	net       *Network
	vocab     []string
	classes   []string
	threshold float64

	mu             sync.Mutex
	lastConfidence float64
}

// Load reads the three model artifacts from dir and validates that they
// agree on dimensions. A vocabulary or class list from a different training
// run silently produces nonsense predictions, so the mismatch is a hard
// load error here.
func Load(dir string, threshold float64) (*Classifier, error) {
	var net Network
	if err := readJSON(filepath.Join(dir, NetworkFile), &net); err != nil {
		return nil, err
	}
	if err := net.compile(); err != nil {
		return nil, fmt.Errorf("invalid network: %w", err)
	}

	var vocab []string
	if err := readJSON(filepath.Join(dir, VocabFile), &vocab); err != nil {
		return nil, err
	}
	var classes []string
	if err := readJSON(filepath.Join(dir, ClassesFile), &classes); err != nil {
		return nil, err
	}

	if len(vocab) != net.InputDim() {
		return nil, fmt.Errorf("vocabulary has %d words but network expects %d inputs", len(vocab), net.InputDim())
	}
	if len(classes) != net.OutputDim() {
		return nil, fmt.Errorf("class list has %d entries but network produces %d outputs", len(classes), net.OutputDim())
	}

	return &Classifier{
		net:       &net,
		vocab:     vocab,
		classes:   classes,
		threshold: threshold,
	}, nil
}

// ArtifactsExist reports whether a trained model is present in dir.
func ArtifactsExist(dir string) bool {
	for _, name := range []string{NetworkFile, VocabFile, ClassesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Predict classifies the message. Predictions at or below the confidence
// threshold return the unknown sentinel; Confidence still reports the raw
// arg-max probability.
func (c *Classifier) Predict(text string) (string, error) {
	tokens := nlp.Tokenize(text)
	vec := nlp.Vector(tokens, c.vocab)

	probs, err := c.net.Forward(vec)
	if err != nil {
		return "", fmt.Errorf("intent inference: %w", err)
	}

	idx, confidence := argmax(probs)

	c.mu.Lock()
	c.lastConfidence = confidence
	c.mu.Unlock()

	if confidence <= c.threshold {
		return domain.IntentUnknown, nil
	}
	return c.classes[idx], nil
}

// Confidence returns the arg-max probability of the last prediction.
func (c *Classifier) Confidence() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastConfidence
}

// Classes returns the class list in network output order.
func (c *Classifier) Classes() []string {
	return c.classes
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
