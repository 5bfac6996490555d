package aliases

import (
	"iter"
	"strings"
)

// Diff yields, in ascending order and without duplicates, every alias name
// that is present in only one of the tables or whose target differs between
// them. It walks both tables once in a two-pointer merge; the sequence is
// produced lazily as the caller pulls from it.
func Diff(prev, next Table) iter.Seq[string] {
	return func(yield func(string) bool) {
		a, b := prev.entries, next.entries
		i, j := 0, 0

		for i < len(a) && j < len(b) {
			switch c := strings.Compare(a[i].Name, b[j].Name); {
			case c == 0:
				changed := a[i].Target != b[j].Target
				name := a[i].Name
				i++
				j++
				if changed && !yield(name) {
					return
				}
			case c < 0:
				name := a[i].Name
				i++
				if !yield(name) {
					return
				}
			default:
				name := b[j].Name
				j++
				if !yield(name) {
					return
				}
			}
		}

		for ; i < len(a); i++ {
			if !yield(a[i].Name) {
				return
			}
		}
		for ; j < len(b); j++ {
			if !yield(b[j].Name) {
				return
			}
		}
	}
}
