package scene

import (
	"sync"

	"github.com/Versifine/citydrive/internal/physics"
)

// ObstacleSet is the append-only list of static collidables. It only ever
// grows as assets resolve; an empty set is a normal state.
type ObstacleSet struct {
	mu     sync.RWMutex
	shapes []physics.Shape
}

func NewObstacleSet() *ObstacleSet {
	return &ObstacleSet{}
}

func (s *ObstacleSet) Add(shapes ...physics.Shape) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shape := range shapes {
		if shape != nil {
			s.shapes = append(s.shapes, shape)
		}
	}
	return len(s.shapes)
}

// Shapes returns the registered shapes in registration order. The slice is
// shared but never written past its length, so callers must not append.
func (s *ObstacleSet) Shapes() []physics.Shape {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shapes[:len(s.shapes):len(s.shapes)]
}

func (s *ObstacleSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}
