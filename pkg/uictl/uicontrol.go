// Package uictl describes read-only controls that UI components poll for data.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Levels is a control that can read a window of sample levels.
type Levels[N Number] interface {
	Read() []N
}

// LevelsFunc adapts a function to the Levels interface.
type LevelsFunc[N Number] func() []N

func (f LevelsFunc[N]) Read() []N { return f() }
