package intent

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation names used in the serialized network.
const (
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

// Layer is one dense layer of the feed-forward network. Weights are stored
// row-major as [output][input].
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// Network is the serialized feed-forward intent model.
type Network struct {
	Layers []Layer `json:"layers"`

	// dense caches gonum matrices for inference; rebuilt by compile.
	dense []*mat.Dense
	bias  []*mat.VecDense
}

// InputDim returns the expected input vector length.
func (n *Network) InputDim() int {
	if len(n.Layers) == 0 || len(n.Layers[0].Weights) == 0 {
		return 0
	}
	return len(n.Layers[0].Weights[0])
}

// OutputDim returns the number of output classes.
func (n *Network) OutputDim() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return len(n.Layers[len(n.Layers)-1].Weights)
}

// compile validates layer shapes and builds the gonum matrices used for
// inference.
func (n *Network) compile() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network has no layers")
	}

	n.dense = make([]*mat.Dense, len(n.Layers))
	n.bias = make([]*mat.VecDense, len(n.Layers))

	prevOut := -1
	for i, layer := range n.Layers {
		rows := len(layer.Weights)
		if rows == 0 {
			return fmt.Errorf("layer %d has no weights", i)
		}
		cols := len(layer.Weights[0])
		if cols == 0 {
			return fmt.Errorf("layer %d has empty weight rows", i)
		}
		if len(layer.Biases) != rows {
			return fmt.Errorf("layer %d: %d biases for %d outputs", i, len(layer.Biases), rows)
		}
		if prevOut >= 0 && cols != prevOut {
			return fmt.Errorf("layer %d expects %d inputs, previous layer produces %d", i, cols, prevOut)
		}

		flat := make([]float64, 0, rows*cols)
		for r, row := range layer.Weights {
			if len(row) != cols {
				return fmt.Errorf("layer %d row %d has %d weights, want %d", i, r, len(row), cols)
			}
			flat = append(flat, row...)
		}
		n.dense[i] = mat.NewDense(rows, cols, flat)
		n.bias[i] = mat.NewVecDense(rows, append([]float64(nil), layer.Biases...))
		prevOut = rows
	}

	last := n.Layers[len(n.Layers)-1]
	if last.Activation != ActivationSoftmax {
		return fmt.Errorf("final layer activation is %q, want %q", last.Activation, ActivationSoftmax)
	}
	return nil
}

// Forward runs inference and returns the softmax distribution over classes.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(n.dense) != len(n.Layers) {
		if err := n.compile(); err != nil {
			return nil, err
		}
	}
	if len(input) != n.InputDim() {
		return nil, fmt.Errorf("input has %d features, network expects %d", len(input), n.InputDim())
	}

	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for i := range n.Layers {
		rows, _ := n.dense[i].Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(n.dense[i], x)
		y.AddVec(y, n.bias[i])

		out := y.RawVector().Data
		switch n.Layers[i].Activation {
		case ActivationReLU:
			relu(out)
		case ActivationSoftmax:
			softmax(out)
		default:
			return nil, fmt.Errorf("layer %d: unsupported activation %q", i, n.Layers[i].Activation)
		}
		x = y
	}

	return x.RawVector().Data, nil
}

func relu(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

func softmax(v []float64) {
	maxVal := v[0]
	for _, x := range v[1:] {
		if x > maxVal {
			maxVal = x
		}
	}
	sum := 0.0
	for i, x := range v {
		v[i] = math.Exp(x - maxVal)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func argmax(v []float64) (int, float64) {
	best, bestVal := 0, v[0]
	for i, x := range v[1:] {
		if x > bestVal {
			best, bestVal = i+1, x
		}
	}
	return best, bestVal
}
