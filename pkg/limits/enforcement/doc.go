// Package enforcement classifies a denied evaluation as HARD or SOFT
// throttle by which ceiling was hit and the global usage ratio, and
// computes the cooperative delay a SOFT denial applies.
package enforcement
