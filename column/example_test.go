package column_test

import (
	"fmt"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

// ExampleNewColumn builds a column from a toy pricing solution over two
// block-pricing variables and inspects its solution values.
func ExampleNewColumn() {
	v1 := mkVar(1, host.VarPricing, 0)
	v2 := mkVar(2, host.VarPricing, 0)

	c, err := column.NewColumn(0, false, []column.RawEntry{
		{Var: v1, Val: 1},
		{Var: v2, Val: 0.5},
	})
	if err != nil {
		panic(err)
	}

	val, _ := c.SolutionValue(varident.ID(2))
	fmt.Println(val)
	// Output: 0.5
}
