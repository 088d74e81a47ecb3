package testutils

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RecoveryMetrics summarises how closely estimated abilities track the
// abilities the responses were generated from.
type RecoveryMetrics struct {
	Respondents int

	// Bias is the mean of estimate minus truth.
	Bias float64
	// RMSE is the root mean squared error.
	RMSE float64
	// MAE is the mean absolute error.
	MAE float64
	// Correlation is the Pearson correlation of estimates and truth.
	Correlation float64
}

// ComputeRecovery compares estimates with the true abilities.
func ComputeRecovery(trueThetas, estimates []float64) (RecoveryMetrics, error) {
	if len(trueThetas) != len(estimates) {
		return RecoveryMetrics{}, fmt.Errorf("%d true thetas for %d estimates", len(trueThetas), len(estimates))
	}
	if len(trueThetas) < 2 {
		return RecoveryMetrics{}, fmt.Errorf("need at least 2 respondents, got %d", len(trueThetas))
	}

	diff := make([]float64, len(estimates))
	floats.SubTo(diff, estimates, trueThetas)

	abs := make([]float64, len(diff))
	sq := make([]float64, len(diff))
	for i, d := range diff {
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}

	return RecoveryMetrics{
		Respondents: len(diff),
		Bias:        stat.Mean(diff, nil),
		RMSE:        math.Sqrt(stat.Mean(sq, nil)),
		MAE:         stat.Mean(abs, nil),
		Correlation: stat.Correlation(estimates, trueThetas, nil),
	}, nil
}

// GenerateReport renders the metrics for the terminal.
func (m RecoveryMetrics) GenerateReport() string {
	var b strings.Builder
	b.WriteString("=== Ability Recovery Report ===\n\n")
	fmt.Fprintf(&b, "  Respondents: %d\n", m.Respondents)
	fmt.Fprintf(&b, "  Bias:        %+.4f\n", m.Bias)
	fmt.Fprintf(&b, "  RMSE:        %.4f\n", m.RMSE)
	fmt.Fprintf(&b, "  MAE:         %.4f\n", m.MAE)
	fmt.Fprintf(&b, "  Correlation: %.4f\n", m.Correlation)
	return b.String()
}
