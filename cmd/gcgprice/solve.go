package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/gcglog"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricingloop"
	"github.com/scipopt/gcg-colgen/varident"
)

var (
	solveConfigPath string
	solveMaxRounds  int
	solveRollWidth  float64
	solveWidths     []float64
	solveDemands    []int
	solveCfg        = pricingloop.DefaultConfig()
)

func init() {
	def := DefaultInstance()

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "run column generation on a toy cutting-stock instance",
		RunE:  runSolve,
	}
	cmd.Flags().StringVar(&solveConfigPath, "config", "", "YAML pricing-loop configuration file (overrides every other tuning flag when set)")
	cmd.Flags().IntVar(&solveMaxRounds, "max-rounds", 200, "maximum pricing rounds before giving up")
	cmd.Flags().Float64Var(&solveRollWidth, "roll-width", def.RollWidth, "stock roll width")
	cmd.Flags().Float64SliceVar(&solveWidths, "widths", def.Widths, "order widths")
	cmd.Flags().IntSliceVar(&solveDemands, "demands", def.Demands, "order demands, aligned with --widths")
	pricingloop.BindPFlags(cmd.Flags(), &solveCfg)
	rootCmd.AddCommand(cmd)
}

func runSolve(cmd *cobra.Command, _ []string) error {
	if len(solveWidths) != len(solveDemands) {
		return fmt.Errorf("gcgprice: --widths and --demands must have the same length")
	}

	cfg := solveCfg
	if solveConfigPath != "" {
		f, err := os.Open(solveConfigPath)
		if err != nil {
			return fmt.Errorf("gcgprice: %w", err)
		}
		cfg, err = pricingloop.LoadConfigYAML(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	n := len(solveWidths)
	ids := &varident.Counter{}
	widths := make([]int, n)
	vars := make([]*orderVar, n)
	cons := make([]*orderConstraint, n)
	coverage := make([]float64, n)
	masterCons := make([]host.MasterConstraint, n)
	for i := range solveWidths {
		widths[i] = int(math.Round(solveWidths[i]))
		vars[i] = &orderVar{id: ids.Next(), block: 0}
		cons[i] = &orderConstraint{id: ids.Next(), demand: float64(solveDemands[i]), dual: 1}
		masterCons[i] = cons[i]
	}

	mc := &masterContext{cons: masterCons, vars: vars}
	solver := &knapsackSolver{rollWidth: int(math.Round(solveRollWidth)), widths: widths, cons: cons, vars: vars}

	driver := pricingloop.New(cfg, solver)
	driver.EnterNode(0)

	var patterns [][]int
	newMasterVar := func(c *column.Column) error {
		counts := make([]int, n)
		for i, v := range vars {
			if val, ok := c.SolutionValue(v.ID()); ok {
				counts[i] = int(math.Round(val))
				coverage[i] += val
			}
		}
		patterns = append(patterns, counts)

		return nil
	}

	ctx := context.Background()
	ev := driver.NewRedcostEvaluator()
	p := problem{}
	for round := 0; round < solveMaxRounds; round++ {
		applied, err := driver.RunRound(ctx, p, mc, nil, ev, newMasterVar)
		if err != nil {
			return err
		}
		if applied == 0 {
			break
		}
		updateDuals(cons, coverage, round)
	}

	gcglog.Logger().WithFields(map[string]interface{}{
		"rounds":   driver.Round(),
		"patterns": len(patterns),
	}).Info("column generation finished")

	fmt.Printf("rolls used (approx, lambda=1 per pattern): %d\n", len(patterns))
	for i, pat := range patterns {
		fmt.Printf("pattern %3d:", i)
		for j, cnt := range pat {
			if cnt > 0 {
				fmt.Printf(" %dx%g", cnt, solveWidths[j])
			}
		}
		fmt.Println()
	}

	return nil
}

// updateDuals takes one subgradient-ascent step on the covering duals,
// mirroring tsp's Held-Karp 1-tree loop: the subgradient is the demand
// shortfall still uncovered by committed patterns (assuming each is used
// once), and the step diminishes as 1/(1+round) since this demo has no
// upper-bound estimate to drive an adaptive step. This stands in for a
// real restricted-master LP re-solve, which is the host's job and out of
// scope for the core itself.
func updateDuals(cons []*orderConstraint, coverage []float64, round int) {
	const alpha = 1.5
	step := alpha / (1 + float64(round))
	for i, c := range cons {
		s := c.demand - coverage[i]
		c.dual += step * s
		if c.dual < 0 {
			c.dual = 0
		}
	}
}
