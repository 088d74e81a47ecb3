package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-catsurv/internal/application"
)

var probabilityCmd = &cobra.Command{
	Use:   "probability",
	Short: "Print the response probabilities of an item at theta",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		item, err := itemFlag(cmd, "item")
		if err != nil {
			return err
		}
		theta, _ := cmd.Flags().GetFloat64("theta")

		p, err := c.Probability(theta, item)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloats(p))
		return nil
	},
}

var likelihoodCmd = &cobra.Command{
	Use:   "likelihood",
	Short: "Print the likelihood of the recorded answers at theta",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		theta, _ := cmd.Flags().GetFloat64("theta")

		l, err := c.Likelihood(theta)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloat(l))
		return nil
	},
}

var priorCmd = &cobra.Command{
	Use:   "prior",
	Short: "Evaluate a prior density",
	Long: "Evaluates the session prior at --x, or the prior given by --name and " +
		"--params when no session file is supplied.",
	RunE: func(cmd *cobra.Command, args []string) error {
		x, _ := cmd.Flags().GetFloat64("x")
		name, _ := cmd.Flags().GetString("name")

		var (
			d   float64
			err error
		)
		if name != "" {
			params, _ := cmd.Flags().GetFloat64Slice("params")
			if len(params) != 2 {
				return fmt.Errorf("--params needs exactly 2 values, got %d", len(params))
			}
			d, err = application.PriorDensity(x, name, [2]float64{params[0], params[1]})
		} else {
			c, lerr := loadSession(cmd)
			if lerr != nil {
				return lerr
			}
			d, err = c.PriorDensity(x)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloat(d))
		return nil
	},
}

var dllCmd = &cobra.Command{
	Use:   "dll",
	Short: "Print a derivative of the log-likelihood at theta",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		theta, _ := cmd.Flags().GetFloat64("theta")
		usePrior, _ := cmd.Flags().GetBool("use-prior")
		second, _ := cmd.Flags().GetBool("second")

		var v float64
		if second {
			v, err = c.D2LL(theta, usePrior)
		} else {
			v, err = c.D1LL(theta, usePrior)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloat(v))
		return nil
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate ability and its standard error",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		theta, err := c.EstimateTheta()
		if err != nil {
			return err
		}
		se, err := c.EstimateSE()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "estimator: %s\n", c.Estimation())
		fmt.Fprintf(out, "theta:     %s\n", formatFloat(theta))
		fmt.Fprintf(out, "se:        %s\n", formatFloat(se))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print item or test information",
	Long: "Kinds: fisher (item at --theta), observed (answered item at --theta), " +
		"expected (observed information of an unanswered item averaged over its responses), " +
		"test (Fisher test information at the current estimate).",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		theta, _ := cmd.Flags().GetFloat64("theta")

		var v float64
		switch strings.ToLower(kind) {
		case "test":
			v, err = c.FisherTestInfo()
		case "fisher", "observed", "expected":
			item, ierr := itemFlag(cmd, "item")
			if ierr != nil {
				return ierr
			}
			switch strings.ToLower(kind) {
			case "fisher":
				v, err = c.FisherInf(theta, item)
			case "observed":
				v, err = c.ObsInf(theta, item)
			default:
				v, err = c.ExpectedObsInf(item)
			}
		default:
			return fmt.Errorf("unknown --kind %q, expected fisher, observed, expected or test", kind)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloat(v))
		return nil
	},
}

var expectedCmd = &cobra.Command{
	Use:   "expected",
	Short: "Print an expected quantity for an unanswered item",
	Long: "Quantities: pv (expected posterior variance), kl (windowed Kullback-Leibler), " +
		"lkl (likelihood-weighted KL), pkl (posterior-weighted KL).",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		item, err := itemFlag(cmd, "item")
		if err != nil {
			return err
		}
		quantity, _ := cmd.Flags().GetString("quantity")

		var v float64
		switch strings.ToLower(quantity) {
		case "pv":
			v, err = c.ExpectedPV(item)
		case "kl":
			v, err = c.ExpectedKL(item)
		case "lkl":
			v, err = c.LikelihoodKL(item)
		case "pkl":
			v, err = c.PosteriorKL(item)
		default:
			return fmt.Errorf("unknown --quantity %q, expected pv, kl, lkl or pkl", quantity)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatFloat(v))
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Score the unanswered items and pick the next one",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		sel, err := c.SelectItem()
		if err != nil {
			return err
		}

		rows := make([][]string, len(sel.Questions))
		for i, q := range sel.Questions {
			rows[i] = []string{strconv.Itoa(q + 1), sel.QuestionNames[i], formatFloat(sel.Values[i])}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, newTable("ITEM", "NAME", sel.Name).Rows(rows...).Render())
		fmt.Fprintf(out, "next item: %d\n", sel.Item+1)
		return nil
	},
}

var lookaheadCmd = &cobra.Command{
	Use:   "lookahead",
	Short: "Show the next item selected after each possible response",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		item, err := itemFlag(cmd, "item")
		if err != nil {
			return err
		}
		result, err := c.LookAhead(item)
		if err != nil {
			return err
		}

		rows := make([][]string, len(result))
		for i, r := range result {
			rows[i] = []string{strconv.Itoa(r.ResponseOption), strconv.Itoa(r.NextItem + 1)}
		}
		fmt.Fprintln(cmd.OutOrStdout(), newTable("RESPONSE", "NEXT ITEM").Rows(rows...).Render())
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Evaluate the stopping rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSession(cmd)
		if err != nil {
			return err
		}
		stop, err := c.CheckStopRules()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stop)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{probabilityCmd, lookaheadCmd, expectedCmd, infoCmd} {
		c.Flags().IntP("item", "i", 0, "Item number (1-based)")
	}
	for _, c := range []*cobra.Command{probabilityCmd, likelihoodCmd, dllCmd, infoCmd} {
		c.Flags().Float64P("theta", "t", 0, "Ability value")
	}
	_ = probabilityCmd.MarkFlagRequired("item")
	_ = lookaheadCmd.MarkFlagRequired("item")
	_ = expectedCmd.MarkFlagRequired("item")

	priorCmd.Flags().Float64("x", 0, "Point to evaluate")
	priorCmd.Flags().String("name", "", "Prior family: normal, student_t or uniform")
	priorCmd.Flags().Float64Slice("params", nil, "The two prior parameters")

	dllCmd.Flags().Bool("use-prior", false, "Include the log prior (normal priors only)")
	dllCmd.Flags().Bool("second", false, "Print the second derivative")

	infoCmd.Flags().String("kind", "fisher", "fisher, observed, expected or test")
	expectedCmd.Flags().String("quantity", "pv", "pv, kl, lkl or pkl")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}
