package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-catsurv/internal/application"
	"github.com/ahrav/go-catsurv/internal/testutils"
)

var estimateAllCmd = &cobra.Command{
	Use:   "estimate-all",
	Short: "Estimate ability for every row of a response table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, (*application.BatchRunner).EstimateThetas)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Administer the test adaptively to every row until a stopping rule fires",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, (*application.BatchRunner).SimulateAll)
	},
}

type batchOp func(*application.BatchRunner, context.Context, [][]int) ([]float64, error)

func init() {
	for _, c := range []*cobra.Command{estimateAllCmd, simulateCmd} {
		c.Flags().String("responses", "", "CSV of responses, one respondent per row (header required)")
		c.Flags().String("dataset", "", "Generated response dataset (JSON) with true abilities")
		c.Flags().Int("workers", 0, "Parallel workers (0 uses GOMAXPROCS)")
		c.Flags().Float64("rate", 0, "Maximum rows per second (0 is unlimited)")
		c.MarkFlagsMutuallyExclusive("responses", "dataset")
		c.MarkFlagsOneRequired("responses", "dataset")
	}
}

func runBatch(cmd *cobra.Command, op batchOp) error {
	c, err := loadSession(cmd)
	if err != nil {
		return err
	}

	rows, truth, err := readRows(cmd)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	opts := []application.BatchOption{application.WithWorkers(workers)}
	if perSecond, _ := cmd.Flags().GetFloat64("rate"); perSecond > 0 {
		opts = append(opts, application.WithRowLimit(perSecond, workers))
	}

	thetas, err := op(application.NewBatchRunner(c, opts...), cmd.Context(), rows)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	table := make([][]string, len(thetas))
	for i, theta := range thetas {
		table[i] = []string{strconv.Itoa(i + 1), formatFloat(theta)}
	}
	fmt.Fprintln(out, newTable("ROW", "THETA").Rows(table...).Render())

	if truth != nil {
		metrics, err := testutils.ComputeRecovery(truth, thetas)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, metrics.GenerateReport())
	}
	return nil
}

// readRows returns the response rows and, for datasets, the true abilities.
func readRows(cmd *cobra.Command) ([][]int, []float64, error) {
	if path, _ := cmd.Flags().GetString("responses"); path != "" {
		table, err := application.ReadResponsesFile(path)
		if err != nil {
			return nil, nil, err
		}
		return table.Rows, nil, nil
	}
	path, _ := cmd.Flags().GetString("dataset")
	if path == "" {
		return nil, nil, errors.New("one of --responses or --dataset is required")
	}
	dataset, err := testutils.LoadResponseDataset(path)
	if err != nil {
		return nil, nil, err
	}
	return dataset.Rows, dataset.TrueThetas, nil
}
