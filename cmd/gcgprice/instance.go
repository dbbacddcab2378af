package main

// Instance is a toy one-dimensional cutting-stock instance: cut rolls of
// RollWidth into pieces meeting each order's width and demand.
type Instance struct {
	RollWidth float64
	Widths    []float64
	Demands   []int
}

// DefaultInstance returns Chvátal's textbook cutting-stock example (roll
// width 100, four order widths with large demands).
func DefaultInstance() Instance {
	return Instance{
		RollWidth: 100,
		Widths:    []float64{45, 36, 31, 14},
		Demands:   []int{97, 610, 395, 211},
	}
}
