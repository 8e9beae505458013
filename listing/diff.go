package listing

// KnownLinks is the set of links already present in the store.
type KnownLinks map[string]struct{}

// Has reports whether link is known.
func (k KnownLinks) Has(link string) bool {
	_, ok := k[link]
	return ok
}

// Add records link as known. It reports false if link was already present.
func (k KnownLinks) Add(link string) bool {
	if k.Has(link) {
		return false
	}
	k[link] = struct{}{}
	return true
}

// Links builds the known-links set for entries.
func Links(entries []Entry) KnownLinks {
	k := make(KnownLinks, len(entries))
	for _, e := range entries {
		k.Add(e.Link)
	}
	return k
}

// Dedupe keeps the first entry for each link and drops entries with an
// empty link. Order is preserved.
func Dedupe(entries []Entry) []Entry {
	seen := make(KnownLinks, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Link == "" || !seen.Add(e.Link) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Merge appends to stored every found listing whose link is not yet known,
// in the order found. Repeats within found collapse to the first occurrence.
// It returns the full collection and just the appended entries.
func Merge(stored []Entry, found []Listing) (all, added []Entry) {
	known := Links(stored)
	all = make([]Entry, len(stored), len(stored)+len(found))
	copy(all, stored)
	added = []Entry{}
	for _, l := range found {
		if !known.Add(l.Link) {
			continue
		}
		e := l.Entry()
		all = append(all, e)
		added = append(added, e)
	}
	return all, added
}
