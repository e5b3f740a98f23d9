package service

import (
	"sort"

	"github.com/tably-pos/api/internal/database"
)

// sortTablesNaturally orders tables by display number with digit runs
// compared numerically, so "2" < "10" and "3a" < "3b" < "12".
func sortTablesNaturally(tables []database.FloorTable) {
	sort.SliceStable(tables, func(i, j int) bool {
		return naturalLess(tables[i].TableNumber, tables[j].TableNumber)
	})
}

func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := takeNumber(a)
			nb, rb := takeNumber(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// takeNumber splits a leading digit run off s. Leading zeros compare by
// value, ties fall back to byte comparison of the remainder.
func takeNumber(s string) (int64, string) {
	var n int64
	i := 0
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + int64(s[i]-'0')
		i++
	}
	return n, s[i:]
}
