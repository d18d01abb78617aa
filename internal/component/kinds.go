package component

import "github.com/forgesim/server/internal/core/ecs"

// Kinds returns one zero value of every data kind in this package, in
// registration order.
func Kinds() []ecs.Data {
	return []ecs.Data{
		&Health{},
		&Lifetime{},
		&Position{},
		&Velocity{},
		&Energy{},
		&Clock{},
	}
}
