package naive

// Tuples lists the derivative multi-indices k ∈ N^g with |k| <= ord, by
// total order first and then in ascending lexicographic order.
func Tuples(g, ord int) [][]int {
	var out [][]int
	for d := 0; d <= ord; d++ {
		cur := make([]int, g)
		var rec func(i, left int)
		rec = func(i, left int) {
			if i == g-1 {
				cur[i] = left
				out = append(out, append([]int(nil), cur...))
				return
			}
			for x := 0; x <= left; x++ {
				cur[i] = x
				rec(i+1, left-x)
			}
		}
		rec(0, d)
	}
	return out
}

// TupleCount returns len(Tuples(g, ord)) = C(ord+g, g).
func TupleCount(g, ord int) int {
	n := 1
	for i := 1; i <= g; i++ {
		n = n * (ord + i) / i
	}
	return n
}

// TupleIndex returns the position of k in Tuples(len(k), ord), or -1.
func TupleIndex(k []int, ord int) int {
	for i, t := range Tuples(len(k), ord) {
		same := true
		for j := range t {
			if t[j] != k[j] {
				same = false
				break
			}
		}
		if same {
			return i
		}
	}
	return -1
}

func order(k []int) int {
	s := 0
	for _, x := range k {
		s += x
	}
	return s
}
