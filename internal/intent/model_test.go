package intent

import (
	"math"
	"testing"
)

func softmaxLayer(weights [][]float64, biases []float64) Layer {
	return Layer{Weights: weights, Biases: biases, Activation: ActivationSoftmax}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		net  Network
	}{
		{"no layers", Network{}},
		{
			"bias count mismatch",
			Network{Layers: []Layer{softmaxLayer([][]float64{{1, 0}, {0, 1}}, []float64{0})}},
		},
		{
			"ragged weight rows",
			Network{Layers: []Layer{softmaxLayer([][]float64{{1, 0}, {0}}, []float64{0, 0})}},
		},
		{
			"final layer not softmax",
			Network{Layers: []Layer{{Weights: [][]float64{{1, 0}}, Biases: []float64{0}, Activation: ActivationReLU}}},
		},
		{
			"layer dimension mismatch",
			Network{Layers: []Layer{
				{Weights: [][]float64{{1, 0}, {0, 1}, {1, 1}}, Biases: []float64{0, 0, 0}, Activation: ActivationReLU},
				softmaxLayer([][]float64{{1, 0}, {0, 1}}, []float64{0, 0}),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.net.compile(); err == nil {
				t.Error("expected compile error, got nil")
			}
		})
	}
}

func TestForward(t *testing.T) {
	net := Network{Layers: []Layer{
		{Weights: [][]float64{{1, 0}, {0, 1}}, Biases: []float64{0, 0}, Activation: ActivationReLU},
		softmaxLayer([][]float64{{1, 0}, {0, 1}}, []float64{0, 0}),
	}}

	probs, err := net.Forward([]float64{-1, 3})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}

	// ReLU zeroes the negative input, so class 1 dominates.
	idx, conf := argmax(probs)
	if idx != 1 {
		t.Errorf("argmax = %d, want 1", idx)
	}
	want := math.Exp(3) / (1 + math.Exp(3))
	if math.Abs(conf-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", conf, want)
	}
}

func TestForwardInputMismatch(t *testing.T) {
	net := Network{Layers: []Layer{softmaxLayer([][]float64{{1, 0}, {0, 1}}, []float64{0, 0})}}
	if _, err := net.Forward([]float64{1}); err == nil {
		t.Error("expected error for wrong input length")
	}
}

func TestDims(t *testing.T) {
	net := Network{Layers: []Layer{
		{Weights: [][]float64{{1, 0, 0}, {0, 1, 0}}, Biases: []float64{0, 0}, Activation: ActivationReLU},
		softmaxLayer([][]float64{{1, 0}, {0, 1}, {1, 1}, {0, 0}}, []float64{0, 0, 0, 0}),
	}}
	if got := net.InputDim(); got != 3 {
		t.Errorf("InputDim = %d, want 3", got)
	}
	if got := net.OutputDim(); got != 4 {
		t.Errorf("OutputDim = %d, want 4", got)
	}
}
