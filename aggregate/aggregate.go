// Package aggregate contains the summation kernels compared by the
// benchmark and the ordered table of variants a sweep runs.
//
// Every kernel visits each element of data exactly once, so for any
// contiguous partitioning the partial sums add up to Scalar over the whole
// buffer (modulo 2^bits).
package aggregate

import "github.com/perfgo/gatherbench/memory"

// Lanes is the number of elements combined per vector step.
const Lanes = 8

// Func aggregates data. Strided kernels walk data with the given stride,
// the others ignore it. A Func must be pure.
type Func[T memory.Element] func(data []T, stride int) T

// Variant is one competitor of the sweep.
type Variant[T memory.Element] struct {
	Func  Func[T]
	Label string
	// Strided variants are measured at every stride, the others once.
	Strided bool
}

// Variants returns the competitors in reporting order.
func Variants[T memory.Element]() []Variant[T] {
	return []Variant[T]{
		{Func: Scalar[T], Label: "scalar", Strided: false},
		{Func: Linear[T], Label: "linear", Strided: false},
		{Func: Gather[T], Label: "gather", Strided: true},
		{Func: SetThenLoad[T], Label: "seti", Strided: true},
	}
}

// Labels returns the variant labels in order.
func Labels[T memory.Element](variants []Variant[T]) []string {
	labels := make([]string, len(variants))
	for i, v := range variants {
		labels[i] = v.Label
	}
	return labels
}

// Scalar adds the elements one at a time.
func Scalar[T memory.Element](data []T, _ int) T {
	var sum T
	for _, v := range data {
		sum += v
	}
	return sum
}

// Linear loads Lanes contiguous elements per step into independent
// accumulators.
func Linear[T memory.Element](data []T, _ int) T {
	var acc [Lanes]T
	i := 0
	for ; i+Lanes <= len(data); i += Lanes {
		block := data[i : i+Lanes : i+Lanes]
		for k := range acc {
			acc[k] += block[k]
		}
	}
	sum := reduce(acc)
	for ; i < len(data); i++ {
		sum += data[i]
	}
	return sum
}

// Gather fetches Lanes elements stride apart through a precomputed index
// vector. All stride residues are walked so every element is read once.
func Gather[T memory.Element](data []T, stride int) T {
	stride = normalize(stride, len(data))
	var idx [Lanes]int
	for k := range idx {
		idx[k] = k * stride
	}
	span := Lanes * stride

	var acc [Lanes]T
	var tail T
	for off := 0; off < stride; off++ {
		i := off
		for ; i+idx[Lanes-1] < len(data); i += span {
			for k := range acc {
				acc[k] += data[i+idx[k]]
			}
		}
		for ; i < len(data); i += stride {
			tail += data[i]
		}
	}
	return reduce(acc) + tail
}

// SetThenLoad sets Lanes strided elements into a vector one by one and
// then adds the vector to the accumulator.
func SetThenLoad[T memory.Element](data []T, stride int) T {
	stride = normalize(stride, len(data))
	span := Lanes * stride

	var acc, vec [Lanes]T
	var tail T
	for off := 0; off < stride; off++ {
		i := off
		for ; i+(Lanes-1)*stride < len(data); i += span {
			vec[0] = data[i]
			vec[1] = data[i+stride]
			vec[2] = data[i+2*stride]
			vec[3] = data[i+3*stride]
			vec[4] = data[i+4*stride]
			vec[5] = data[i+5*stride]
			vec[6] = data[i+6*stride]
			vec[7] = data[i+7*stride]
			for k := range acc {
				acc[k] += vec[k]
			}
		}
		for ; i < len(data); i += stride {
			tail += data[i]
		}
	}
	return reduce(acc) + tail
}

func reduce[T memory.Element](acc [Lanes]T) T {
	var sum T
	for _, v := range acc {
		sum += v
	}
	return sum
}

// normalize clamps stride to [1, n] so the residue loop never runs past
// the data.
func normalize(stride, n int) int {
	if stride < 1 {
		return 1
	}
	if n > 0 && stride > n {
		return n
	}
	return stride
}
