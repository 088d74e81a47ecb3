package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-catsurv/internal/application"
	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/testutils"
)

const sessionYAML = `
model: ltm
estimation: eap
selection: mfi
prior:
  name: normal
  params: [0, 1]
items:
  - {name: Q1, discrimination: 1.2, difficulty: [-1.0]}
  - {name: Q2, discrimination: 0.8, difficulty: [0.5]}
  - {name: Q3, discrimination: 1.5, difficulty: [0.0]}
  - {name: Q4, discrimination: 1.0, difficulty: [1.0]}
answers: [1, null, 0, null]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// resetFlags restores every flag to its default so commands run in
// sequence do not see each other's values.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--log-mode", "dev"))
	err := Execute()
	return out.String(), err
}

func session(t *testing.T, path string) *application.Cat {
	t.Helper()
	cfg, err := application.LoadConfigFile(path)
	require.NoError(t, err)
	c, err := application.NewCat(cfg)
	require.NoError(t, err)
	return c
}

func TestSessionCommands(t *testing.T) {
	path := writeFile(t, "session.yaml", sessionYAML)
	c := session(t, path)

	p, err := c.Probability(0.5, 1)
	require.NoError(t, err)
	theta, err := c.EstimateTheta()
	require.NoError(t, err)
	fisher, err := c.FisherInf(-0.3, 3)
	require.NoError(t, err)
	pv, err := c.ExpectedPV(1)
	require.NoError(t, err)
	sel, err := c.SelectItem()
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "probability",
			args: []string{"probability", "-c", path, "--item", "2", "--theta", "0.5"},
			want: []string{formatFloats(p)},
		},
		{
			name: "estimate",
			args: []string{"estimate", "-c", path},
			want: []string{"estimator: EAP", "theta:     " + formatFloat(theta)},
		},
		{
			name: "fisher information",
			args: []string{"info", "-c", path, "--item", "4", "--theta", "-0.3"},
			want: []string{formatFloat(fisher)},
		},
		{
			name: "expected posterior variance",
			args: []string{"expected", "-c", path, "--item", "2", "--quantity", "PV"},
			want: []string{formatFloat(pv)},
		},
		{
			name: "select",
			args: []string{"select", "-c", path},
			want: []string{"MFI", "Q2", "Q4", "next item: " + strconv.Itoa(sel.Item+1)},
		},
		{
			name: "lookahead",
			args: []string{"lookahead", "-c", path, "--item", "2"},
			want: []string{"RESPONSE", "NEXT ITEM"},
		},
		{
			name: "stop without rules",
			args: []string{"stop", "-c", path},
			want: []string{"false"},
		},
		{
			name: "prior by name",
			args: []string{"prior", "--name", "normal", "--params", "0,1", "--x", "0"},
			want: []string{"0.3989422804"},
		},
		{
			name: "version",
			args: []string{"version"},
			want: []string{"catsurv "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestSessionCommandErrors(t *testing.T) {
	path := writeFile(t, "session.yaml", sessionYAML)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing config", args: []string{"estimate"}, wantErr: "--config is required"},
		{name: "zero item", args: []string{"probability", "-c", path, "--item", "0"}, wantErr: "1-based"},
		{name: "unknown kind", args: []string{"info", "-c", path, "--kind", "bogus"}, wantErr: "unknown --kind"},
		{name: "answered item", args: []string{"expected", "-c", path, "--item", "1"}, wantErr: "answered"},
		{name: "prior params", args: []string{"prior", "--name", "normal", "--params", "1"}, wantErr: "exactly 2"},
		{name: "missing file", args: []string{"estimate", "-c", filepath.Join(t.TempDir(), "nope.yaml")}, wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBatchCommands(t *testing.T) {
	path := writeFile(t, "session.yaml", sessionYAML)
	responses := writeFile(t, "responses.csv", "Q1,Q2,Q3,Q4\n1,0,1,NA\n0,0,0,1\nNA,1,1,1\n")

	t.Run("estimate-all from csv", func(t *testing.T) {
		out, err := run(t, "estimate-all", "-c", path, "--responses", responses, "--workers", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "THETA")
		assert.NotContains(t, out, "Recovery")
	})

	t.Run("estimate-all from dataset", func(t *testing.T) {
		cfg, err := application.LoadConfigFile(path)
		require.NoError(t, err)
		dataset, err := testutils.GenerateResponseDataset(domain.ModelLTM, cfg.Items, 12, 9)
		require.NoError(t, err)
		datasetPath := filepath.Join(t.TempDir(), "dataset.json")
		require.NoError(t, testutils.SaveResponseDataset(dataset, datasetPath))

		out, err := run(t, "estimate-all", "-c", path, "--dataset", datasetPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Ability Recovery Report")
		assert.Contains(t, out, "Respondents: 12")
	})

	t.Run("simulate needs a stopping rule", func(t *testing.T) {
		_, err := run(t, "simulate", "-c", path, "--responses", responses)
		require.ErrorIs(t, err, domain.ErrNoStoppingRule)
	})

	t.Run("simulate with a length rule", func(t *testing.T) {
		withRule := writeFile(t, "rule.yaml", sessionYAML+"stopping:\n  length_threshold: 3\n")
		complete := writeFile(t, "complete.csv", "Q1,Q2,Q3,Q4\n1,0,1,1\n0,1,0,0\n")
		out, err := run(t, "simulate", "-c", withRule, "--responses", complete)
		require.NoError(t, err)
		assert.Contains(t, out, "ROW")
	})

	t.Run("table source required", func(t *testing.T) {
		_, err := run(t, "estimate-all", "-c", path)
		require.Error(t, err)
	})
}
