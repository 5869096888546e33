// Package pipeline holds pipeline specifications and the materializer that
// wires them into instances of units.
//
// A step's input is a literal path, a "{<step>Output}" reference, or empty
// for the previous step's output. References resolve against built-in steps
// and steps declared earlier; anything else is an
// UnresolvedStepReferenceError, which keeps every instance acyclic.
// Units run lazily: nothing is downloaded or executed until a unit is
// forced or realized.
package pipeline
