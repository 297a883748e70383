// Package optimizer implements the exterior-point (EP) constrained
// optimizer at the core of the layout engine: an outer penalty-weight loop
// around an L-BFGS inner minimizer, itself stepped by an Armijo/weak-Wolfe
// line search (see packages lbfgs and linesearch).
//
// The optimizer is a pure state machine. Step takes a State and a step
// budget and returns a new State; nothing here blocks, retries, or owns a
// goroutine. A caller drives convergence by calling Step repeatedly -
// typically once per animation frame of an external event loop - until the
// returned State's Status is EPConverged or Error.
package optimizer
