package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"riemann-theta/ball"
	"riemann-theta/internal/sample"
	"riemann-theta/theta"
)

// sweepRow is one line of the sweep JSONL output.
type sweepRow struct {
	Genus    int    `json:"genus"`
	Prec     uint   `json:"prec"`
	Sample   int    `json:"sample"`
	Strategy string `json:"strategy"`
	NaiveUS  int64  `json:"naive_us"`
	AutoUS   int64  `json:"auto_us"`
	Retries  int    `json:"retries"`
	Reduced  bool   `json:"reduced"`
}

type sweepJob struct {
	prec   uint
	sample int
	tau    [][]complex128
	z      []complex128
}

func newSweepCmd(a *app) *cobra.Command {
	var (
		genus   int
		precs   []uint
		seed    string
		count   int
		workers int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Time naive against automatic strategy on random period matrices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if genus < 1 || count < 1 || len(precs) == 0 {
				return fmt.Errorf("sweep: need genus >= 1, count >= 1 and at least one precision: %w", theta.ErrDomain)
			}
			if workers < 1 {
				workers = 1
			}
			src, err := sample.New(seed)
			if err != nil {
				return err
			}
			// fixtures are drawn up front so rows do not depend on scheduling
			var jobs []sweepJob
			for i := 0; i < count; i++ {
				tau, z := src.Tau(genus, 0.5), src.Point(genus, 0.5)
				for _, p := range precs {
					jobs = append(jobs, sweepJob{prec: p, sample: i, tau: tau, z: z})
				}
			}
			rows := make([]sweepRow, len(jobs))
			start := time.Now()
			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(workers)
			for i, job := range jobs {
				i, job := i, job
				eg.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					row, err := runSweepJob(genus, job, a.options())
					if err != nil {
						return fmt.Errorf("sweep: sample %d at %d bits: %w", job.sample, job.prec, err)
					}
					rows[i] = row
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}
			a.logger.Info("sweep done",
				zap.Int("genus", genus),
				zap.Int("rows", len(rows)),
				zap.Duration("elapsed", time.Since(start)))
			return writeRows(out, rows)
		},
	}
	cmd.Flags().IntVar(&genus, "genus", 2, "genus of the random period matrices")
	cmd.Flags().UintSliceVar(&precs, "precs", []uint{64, 256, 1024}, "target precisions in bits")
	cmd.Flags().StringVar(&seed, "seed", "thetacli/sweep", "fixture label")
	cmd.Flags().IntVar(&count, "count", 4, "random samples per precision")
	cmd.Flags().IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "parallel evaluations")
	cmd.Flags().StringVarP(&out, "out", "o", "sweep.jsonl", "JSONL output path")
	return cmd
}

func runSweepJob(g int, job sweepJob, opts []theta.Option) (sweepRow, error) {
	tau := ball.MatFromComplex128(job.tau, job.prec)
	zs := [][]*ball.Complex{ball.VecFromComplex128(job.z, job.prec)}
	row := sweepRow{Genus: g, Prec: job.prec, Sample: job.sample}

	t0 := time.Now()
	if _, err := theta.Eval(tau, zs, theta.All(), 0, job.prec, append(opts, theta.WithStrategy(theta.Naive))...); err != nil {
		return row, err
	}
	row.NaiveUS = time.Since(t0).Microseconds()

	t0 = time.Now()
	res, err := theta.Eval(tau, zs, theta.All(), 0, job.prec, opts...)
	if err != nil {
		return row, err
	}
	row.AutoUS = time.Since(t0).Microseconds()
	row.Strategy = res.Strategy().String()
	row.Retries = res.Retries()
	row.Reduced = res.Reduced()
	return row, nil
}

func writeRows(path string, rows []sweepRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readRows(path string) ([]sweepRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	var rows []sweepRow
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r sweepRow
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		rows = append(rows, r)
	}
	return rows, sc.Err()
}
