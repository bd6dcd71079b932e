package reconcile

// Projection reorders string rows into a fixed positional layout chosen by
// column name.
type Projection struct {
	src   []int
	dst   []int
	width int
}

// Project matches the names in header against indexes (name → output
// position). It reports false when no name matched.
func Project(header []string, indexes map[string]int) (Projection, bool) {
	p := Projection{}
	for i, name := range header {
		d, ok := indexes[name]
		if !ok || d < 0 {
			continue
		}
		p.src = append(p.src, i)
		p.dst = append(p.dst, d)
		if d+1 > p.width {
			p.width = d + 1
		}
	}
	return p, len(p.src) > 0
}

// Width is the length of every projected row.
func (p Projection) Width() int { return p.width }

// Apply returns a new row of Width entries. Positions with no source column,
// or whose source column is missing from row, are empty.
func (p Projection) Apply(row []string) []string {
	out := make([]string, p.width)
	for i, s := range p.src {
		if s < len(row) {
			out[p.dst[i]] = row[s]
		}
	}
	return out
}
