// Package assembly builds the ordered list of quota ceilings (global,
// monthly, window) the evaluator must check for one admission decision.
package assembly
