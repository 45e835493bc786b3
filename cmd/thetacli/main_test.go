package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riemann-theta/theta"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	in := writeFile(t, "theta3.yaml", `
prec: 64
tau:
  - [{im: "2"}]
chars:
  - {a: "0", b: "0"}
`)
	out, err := run(t, "eval", "-i", in, "--timings")
	require.NoError(t, err)
	assert.Contains(t, out, "z0 [0|0] d(0)")
	assert.Contains(t, out, "1.003734885")
	assert.Contains(t, out, "# naive")
}

func TestReduceCommand(t *testing.T) {
	in := writeFile(t, "tau.yaml", `
tau:
  - [{re: "3/10", im: "2/5"}]
`)
	out, err := run(t, "reduce", "-i", in)
	require.NoError(t, err)
	assert.Contains(t, out, "tau':")
	assert.Contains(t, out, "M:")
	assert.Contains(t, out, "word: ")
}

func TestInput(t *testing.T) {
	p := writeFile(t, "in.yaml", `
prec: 80
order: 1
tau:
  - [{im: "1"}, {re: "1/4"}]
  - [{re: "1/4"}, {im: "2"}]
z:
  - [{re: "0.1"}, {im: "-0.2"}]
chars:
  - {a: "01", b: "10"}
`)
	in, err := readInput(p)
	require.NoError(t, err)
	assert.Equal(t, uint(80), in.Prec)
	assert.Equal(t, 1, in.Order)

	tau, err := in.tau()
	require.NoError(t, err)
	assert.Equal(t, 2, tau.Rows)
	assert.True(t, tau.At(0, 1).ContainsComplex128(0.25))

	zs, err := in.points(2)
	require.NoError(t, err)
	require.Len(t, zs, 1)
	assert.InDelta(t, -0.2, zs[0][1].Im.Float64(), 1e-15)

	_, err = in.selector()
	require.NoError(t, err)

	bits, err := bitString("0110")
	require.NoError(t, err)
	if diff := cmp.Diff([]uint8{0, 1, 1, 0}, bits); diff != "" {
		t.Fatalf("bitString mismatch (-want +got):\n%s", diff)
	}
	_, err = bitString("012")
	assert.ErrorIs(t, err, theta.ErrDomain)

	bad := &input{Prec: 64, Tau: [][]complexIn{{{Im: "1"}, {}}}}
	_, err = bad.tau()
	assert.ErrorIs(t, err, theta.ErrDomain)

	_, err = readInput(writeFile(t, "bad.yaml", "precision: 3\n"))
	assert.Error(t, err)
}

func TestSweepAndPlot(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "sweep.jsonl")
	html := filepath.Join(dir, "sweep.html")

	_, err := run(t, "sweep", "--genus", "1", "--precs", "64,96", "--count", "2", "--workers", "2", "-o", jsonl)
	require.NoError(t, err)
	rows, err := readRows(jsonl)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	got := make([][2]uint, len(rows))
	for i, r := range rows {
		got[i] = [2]uint{uint(r.Sample), r.Prec}
		assert.Equal(t, 1, r.Genus)
		assert.Equal(t, "naive", r.Strategy)
	}
	want := [][2]uint{{0, 64}, {0, 96}, {1, 64}, {1, 96}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row order mismatch (-want +got):\n%s", diff)
	}

	out, err := run(t, "plot", "--in", jsonl, "-o", html)
	require.NoError(t, err)
	assert.Contains(t, out, "4 rows")
	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "echarts")
}

func TestConfigFlag(t *testing.T) {
	in := writeFile(t, "theta3.yaml", "tau:\n  - [{im: \"2\"}]\n")
	cfg := writeFile(t, "tuning.yaml", "agm_cutover: 64\nguard_bits: 40\n")
	_, err := run(t, "--config", cfg, "eval", "-i", in)
	require.NoError(t, err)

	bad := writeFile(t, "bad.yaml", "cutover: 64\n")
	_, err = run(t, "--config", bad, "eval", "-i", in)
	assert.Error(t, err)
}
