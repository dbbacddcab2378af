// Package stabilization exists because pricing straight off the master
// LP's raw dual solution tends to oscillate near convergence, repeatedly
// regenerating columns that are already effectively in the basis. Blending
// duals toward a slower-moving stability center trades a little pricing
// accuracy per round for far fewer rounds overall.
package stabilization
