package listing

import "sort"

// FilterSelection is one copy of the filter UI state. The controller keeps a
// draft and an applied selection; only the applied one reaches the backend.
type FilterSelection struct {
	CouponNames    []string
	Stores         []string
	Issuers        []string
	OnlyUnassigned bool
}

// IsZero reports whether nothing is selected.
func (f FilterSelection) IsZero() bool {
	return len(f.CouponNames) == 0 && len(f.Stores) == 0 && len(f.Issuers) == 0 && !f.OnlyUnassigned
}

// clone deep-copies the slices so draft and applied never share storage.
func (f FilterSelection) clone() FilterSelection {
	return FilterSelection{
		CouponNames:    append([]string(nil), f.CouponNames...),
		Stores:         append([]string(nil), f.Stores...),
		Issuers:        append([]string(nil), f.Issuers...),
		OnlyUnassigned: f.OnlyUnassigned,
	}
}

// normalized returns a sorted, duplicate-free copy of f.
func (f FilterSelection) normalized() FilterSelection {
	return FilterSelection{
		CouponNames:    sortedSet(f.CouponNames),
		Stores:         sortedSet(f.Stores),
		Issuers:        sortedSet(f.Issuers),
		OnlyUnassigned: f.OnlyUnassigned,
	}
}

func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	sort.Strings(out)
	n := 1
	for _, v := range out[1:] {
		if v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// toggle adds v to the sorted set, or removes it when present.
func toggle(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return append(set[:i:i], set[i+1:]...)
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set[:i]...)
	out = append(out, v)
	return append(out, set[i:]...)
}
