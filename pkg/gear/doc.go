// Package gear defines the core gear geometry model for Epicycle:
// tooth-count/module radius derivations, angular tooth periods, and the
// theoretical center distances required for two gears to mesh.
package gear
