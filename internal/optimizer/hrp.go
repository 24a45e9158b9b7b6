// File: internal/optimizer/hrp.go
// ============================================
package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// clusterNode is one node of the single-linkage dendrogram built over
// the correlation-distance matrix.
type clusterNode struct {
	members     []int
	left, right *clusterNode
}

// hrpWeights implements hierarchical risk parity: cluster assets by
// correlation distance, then recursively bisect the dendrogram,
// splitting allocation between each side in inverse proportion to its
// cluster variance. Falls back to equal weight below 3 assets, where
// clustering carries no information.
func hrpWeights(symbols []string, data *mat.Dense) ([]float64, error) {
	n := len(symbols)
	if n < 3 {
		return equalWeights(n), nil
	}

	cov := stat.CovarianceMatrix(nil, data, nil)
	dist := correlationDistance(cov, n)
	tree := buildDendrogram(dist, n)

	weights := make([]float64, n)
	bisect(tree, cov, 1.0, weights)
	return weights, nil
}

func correlationDistance(cov *mat.SymDense, n int) [][]float64 {
	dist := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denom := math.Sqrt(cov.At(i, i) * cov.At(j, j))
			corr := 0.0
			if denom > 0 {
				corr = cov.At(i, j) / denom
			}
			v := 0.5 * (1 - corr)
			if v < 0 {
				v = 0
			}
			d := math.Sqrt(v)
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// buildDendrogram agglomerates leaves bottom-up using single-linkage
// distance (the minimum pairwise distance between any two members of
// the candidate clusters).
func buildDendrogram(dist [][]float64, n int) *clusterNode {
	active := make([]*clusterNode, n)
	for i := 0; i < n; i++ {
		active[i] = &clusterNode{members: []int{i}}
	}

	for len(active) > 1 {
		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				d := singleLinkageDistance(active[i], active[j], dist)
				if d < best {
					best = d
					bi, bj = i, j
				}
			}
		}

		members := make([]int, 0, len(active[bi].members)+len(active[bj].members))
		members = append(members, active[bi].members...)
		members = append(members, active[bj].members...)
		merged := &clusterNode{members: members, left: active[bi], right: active[bj]}

		next := make([]*clusterNode, 0, len(active)-1)
		for k, c := range active {
			if k != bi && k != bj {
				next = append(next, c)
			}
		}
		active = append(next, merged)
	}
	return active[0]
}

func singleLinkageDistance(a, b *clusterNode, dist [][]float64) float64 {
	best := math.Inf(1)
	for _, i := range a.members {
		for _, j := range b.members {
			if dist[i][j] < best {
				best = dist[i][j]
			}
		}
	}
	return best
}

// bisect allocates alloc down the dendrogram, splitting each internal
// node between its two children in inverse proportion to their
// inverse-variance cluster variance.
func bisect(node *clusterNode, cov *mat.SymDense, alloc float64, weights []float64) {
	if node.left == nil || node.right == nil {
		for _, m := range node.members {
			weights[m] = alloc / float64(len(node.members))
		}
		return
	}

	leftVar := clusterVariance(node.left.members, cov)
	rightVar := clusterVariance(node.right.members, cov)
	total := leftVar + rightVar

	leftShare := 0.5
	if total > 0 {
		leftShare = 1 - leftVar/total
	}

	bisect(node.left, cov, alloc*leftShare, weights)
	bisect(node.right, cov, alloc*(1-leftShare), weights)
}

// clusterVariance is the variance of the inverse-variance-weighted
// sub-portfolio over a cluster's members.
func clusterVariance(members []int, cov *mat.SymDense) float64 {
	n := len(members)
	ivp := make([]float64, n)
	sum := 0.0
	for i, m := range members {
		v := cov.At(m, m)
		if v <= 0 {
			v = 1e-12
		}
		ivp[i] = 1.0 / v
		sum += ivp[i]
	}
	if sum <= 0 {
		return 0
	}
	for i := range ivp {
		ivp[i] /= sum
	}

	variance := 0.0
	for i, mi := range members {
		for j, mj := range members {
			variance += ivp[i] * ivp[j] * cov.At(mi, mj)
		}
	}
	return variance
}
