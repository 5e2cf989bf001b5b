package serving

import (
	"encoding/json"
	"fmt"
	"math"
)

// Predictor applies a loaded model row-wise. Implementations are immutable
// after construction and safe for concurrent use.
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// modelDocument is the serialized model envelope. The format field selects
// the predictor implementation at load time; the blob is never introspected
// beyond this header.
type modelDocument struct {
	Format       string    `json:"format"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// FormatLinearRegression and FormatLogisticRegression are the supported
// model formats
const (
	FormatLinearRegression   = "linear_regression"
	FormatLogisticRegression = "logistic_regression"
)

// OpenModel deserializes a model artifact into a predictor and its ordered
// input feature schema
func OpenModel(data []byte) (Predictor, []string, error) {
	var doc modelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse model document: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, nil, fmt.Errorf("model document has no features")
	}
	if len(doc.Coefficients) != len(doc.Features) {
		return nil, nil, fmt.Errorf("model document has %d coefficients for %d features",
			len(doc.Coefficients), len(doc.Features))
	}

	switch doc.Format {
	case FormatLinearRegression:
		return &linearPredictor{weights: doc.Coefficients, intercept: doc.Intercept}, doc.Features, nil
	case FormatLogisticRegression:
		return &logisticPredictor{weights: doc.Coefficients, intercept: doc.Intercept}, doc.Features, nil
	default:
		return nil, nil, fmt.Errorf("unsupported model format %q", doc.Format)
	}
}

// linearPredictor predicts a continuous value as the weighted feature sum
type linearPredictor struct {
	weights   []float64
	intercept float64
}

func (p *linearPredictor) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(p.weights) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), len(p.weights))
		}
		out[i] = dot(p.weights, row) + p.intercept
	}
	return out, nil
}

// logisticPredictor predicts the binary class label at the 0.5 probability
// threshold
type logisticPredictor struct {
	weights   []float64
	intercept float64
}

func (p *logisticPredictor) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(p.weights) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), len(p.weights))
		}
		prob := 1.0 / (1.0 + math.Exp(-(dot(p.weights, row) + p.intercept)))
		if prob >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func dot(weights, row []float64) float64 {
	var sum float64
	for i, w := range weights {
		sum += w * row[i]
	}
	return sum
}
