package ranking

import "strings"

// Filter narrows entries by a case-insensitive name/NIS match and an exact class, then keeps the
// first top entries when top > 0. Ranks are left as computed over the full cohort.
func Filter(entries []Entry, q, class string, top int) []Entry {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if class != "" && e.Student.Class != class {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(e.Student.Name), q) &&
			!strings.Contains(strings.ToLower(e.Student.NIS), q) {
			continue
		}
		out = append(out, e)
	}
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}
