package moo

import (
	"math"
	"sort"
)

// Dominates: a не хуже b по всем целям и строго лучше хотя бы по одной (все цели максимизируются).
func Dominates(a, b []float64) bool {
	better := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			better = true
		}
	}
	return better
}

// ConstrainedDominates - доминирование с ограничениями: решение с меньшим числом
// нарушений доминирует всегда, при равном числе сравниваются цели.
func ConstrainedDominates(a, b []float64, va, vb int) bool {
	if va != vb {
		return va < vb
	}
	return Dominates(a, b)
}

// NonDominatedSort разбивает множество на фронты: фронт 0 - недоминируемые,
// фронт k - недоминируемые после удаления фронтов 0..k-1.
func NonDominatedSort(objs [][]float64) [][]int {
	return ConstrainedNonDominatedSort(objs, nil)
}

// ConstrainedNonDominatedSort - NonDominatedSort по ConstrainedDominates.
// violations == nil означает отсутствие нарушений у всех решений.
func ConstrainedNonDominatedSort(objs [][]float64, violations []int) [][]int {
	n := len(objs)
	viol := func(i int) int {
		if violations == nil {
			return 0
		}
		return violations[i]
	}
	dominatedBy := make([][]int, n) // кого доминирует i
	count := make([]int, n)         // сколькими доминируется i
	var fronts [][]int
	var first []int

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch {
			case ConstrainedDominates(objs[i], objs[j], viol(i), viol(j)):
				dominatedBy[i] = append(dominatedBy[i], j)
				count[j]++
			case ConstrainedDominates(objs[j], objs[i], viol(j), viol(i)):
				dominatedBy[j] = append(dominatedBy[j], i)
				count[i]++
			}
		}
	}
	for i := 0; i < n; i++ {
		if count[i] == 0 {
			first = append(first, i)
		}
	}

	current := first
	for len(current) > 0 {
		fronts = append(fronts, current)
		var next []int
		for _, i := range current {
			for _, j := range dominatedBy[i] {
				count[j]--
				if count[j] == 0 {
					next = append(next, j)
				}
			}
		}
		sort.Ints(next)
		current = next
	}
	return fronts
}

// CrowdingDistance - мера разреженности членов фронта в пространстве целей.
// Крайние точки по каждой цели получают бесконечное расстояние.
func CrowdingDistance(objs [][]float64, front []int) map[int]float64 {
	dist := make(map[int]float64, len(front))
	for _, i := range front {
		dist[i] = 0
	}
	if len(front) <= 2 {
		for _, i := range front {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	m := len(objs[front[0]])
	order := make([]int, len(front))
	for k := 0; k < m; k++ {
		copy(order, front)
		sort.SliceStable(order, func(a, b int) bool {
			return objs[order[a]][k] < objs[order[b]][k]
		})
		lo, hi := objs[order[0]][k], objs[order[len(order)-1]][k]
		dist[order[0]] = math.Inf(1)
		dist[order[len(order)-1]] = math.Inf(1)
		if hi-lo <= 0 {
			continue
		}
		for p := 1; p < len(order)-1; p++ {
			dist[order[p]] += (objs[order[p+1]][k] - objs[order[p-1]][k]) / (hi - lo)
		}
	}
	return dist
}
