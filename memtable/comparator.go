package memtable

// UserComparator orders user keys. Implementations must provide a total
// order consistent across the lifetime of a single memtable — the skip
// list never re-sorts existing entries.
type UserComparator interface {
	Compare(a, b []byte) int
}

// BytewiseComparator orders user keys by plain byte-lexicographic
// comparison, the default ordering used when nothing domain-specific is
// required.
type BytewiseComparator struct{}

func (BytewiseComparator) Compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// internalKeyCompare builds the comparator the skip list uses: it
// decodes the length-prefixed internal key from each entry (user_key ‖
// tag), compares user keys via cmp, and on a tie compares the 64-bit
// tags in descending order — so among entries for the same user key,
// the one with the higher (newer, or same-sequence-but-TypeValue) tag
// sorts first. This mirrors comparing the tag's raw bytes in reverse,
// expressed as a numeric comparison for clarity.
func internalKeyCompare(cmp UserComparator) func(a, b []byte) int {
	return func(a, b []byte) int {
		ikeyA, _, err := splitEntry(a)
		if err != nil {
			panic("memtable: corrupt entry in skip list: " + err.Error())
		}
		ikeyB, _, err := splitEntry(b)
		if err != nil {
			panic("memtable: corrupt entry in skip list: " + err.Error())
		}

		userA, tagA := userKeyAndTag(ikeyA)
		userB, tagB := userKeyAndTag(ikeyB)

		if r := cmp.Compare(userA, userB); r != 0 {
			return r
		}
		switch {
		case tagA > tagB:
			return -1
		case tagA < tagB:
			return 1
		default:
			return 0
		}
	}
}
