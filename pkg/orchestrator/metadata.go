package orchestrator

import (
	"github.com/opst/alrun/pkg/domain/learner"
)

// TaskMetadata describes factorization of each task.
//
// Tasks not in the tables have no categorical partitions and 1 partition.
type TaskMetadata struct {
	// Categorical is indices of categorical partitions, per task.
	Categorical map[string][]int

	// Partitions is the number of partitions of feature space, per task.
	Partitions map[string]int
}

// Factorization of the task.
func (m TaskMetadata) Factorization(task string) learner.Factorization {
	f := learner.Factorization{Repeat: 1}
	if n, ok := m.Partitions[task]; ok {
		f.Repeat = n
	}
	if c, ok := m.Categorical[task]; ok && 0 < len(c) {
		f.Categorical = append([]int{}, c...)
	}
	return f
}
