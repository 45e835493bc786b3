package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riemann-theta/chars"
	"riemann-theta/prof"
	"riemann-theta/theta"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		path    string
		digits  int
		timings bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate theta functions described by a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(path)
			if err != nil {
				return err
			}
			tau, err := in.tau()
			if err != nil {
				return err
			}
			zs, err := in.points(tau.Rows)
			if err != nil {
				return err
			}
			sel, err := in.selector()
			if err != nil {
				return err
			}
			rec := prof.New()
			opts := append(a.options(), theta.WithRecorder(rec))
			res, err := theta.Eval(tau, zs, sel, in.Order, in.Prec, opts...)
			if err != nil {
				return err
			}
			a.logger.Info("evaluated",
				zap.Stringer("strategy", res.Strategy()),
				zap.Bool("reduced", res.Reduced()),
				zap.Uint("working_prec", res.Prec()))

			w := cmd.OutOrStdout()
			for i := 0; i < res.NPoints; i++ {
				for j, ch := range res.Chars() {
					for k, tup := range res.Tuples() {
						fmt.Fprintf(w, "z%d %s d%s  %s\n", i, chars.String(ch, res.G), tupleString(tup), res.At(i, j, k).Text(digits))
					}
				}
			}
			if timings {
				for _, e := range rec.SnapshotAndReset() {
					fmt.Fprintf(w, "# %-7s %v\n", e.Label, e.Dur)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "input", "i", "", "YAML input file")
	cmd.Flags().IntVar(&digits, "digits", 20, "significant digits printed per midpoint")
	cmd.Flags().BoolVar(&timings, "timings", false, "print stage timings")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func tupleString(t []int) string {
	parts := make([]string, len(t))
	for i, k := range t {
		parts[i] = fmt.Sprint(k)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func newReduceCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce a period matrix towards the Siegel fundamental domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(path)
			if err != nil {
				return err
			}
			tau, err := in.tau()
			if err != nil {
				return err
			}
			red, err := theta.Reduce(tau, in.Prec, a.options()...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "tau':\n%s", red.Tau)
			fmt.Fprintf(w, "M:\n%s", red.M)
			fmt.Fprintf(w, "word: %s\n", red.Word)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "input", "i", "", "YAML input file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
