package index

// OccurrenceList is the per-keyword list of occurrences, sorted by
// descending frequency. Equal frequencies keep the order in which their
// documents were merged.
type OccurrenceList []Occurrence

// Append adds occ at the tail without restoring order. Callers follow it
// with InsertLast.
func (l OccurrenceList) Append(occ Occurrence) OccurrenceList {
	return append(l, occ)
}

// InsertLast moves the last element of l into its sorted position. The
// first len(l)-1 elements must already be sorted. The position is found by
// a binary search over indices [0, len(l)-2]; the midpoints probed are
// returned in order. A list with fewer than two elements is left alone and
// nil is returned.
func (l OccurrenceList) InsertLast() []int {
	n := len(l)
	if n < 2 {
		return nil
	}
	target := l[n-1].Frequency
	lo, hi := 0, n-2
	probes := make([]int, 0, 4)
	pos := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		probes = append(probes, mid)
		f := l[mid].Frequency
		if target == f {
			last := mid
			for last+1 <= n-2 && l[last+1].Frequency == target {
				last++
			}
			pos = last + 1
			break
		}
		if target > f {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	if pos < 0 {
		pos = lo
	}
	if pos < n-1 {
		occ := l[n-1]
		copy(l[pos+1:], l[pos:n-1])
		l[pos] = occ
	}
	return probes
}

// Documents returns the document ids in list order.
func (l OccurrenceList) Documents() []string {
	docs := make([]string, len(l))
	for i, occ := range l {
		docs[i] = occ.Document
	}
	return docs
}

func (l OccurrenceList) Clone() OccurrenceList {
	if l == nil {
		return nil
	}
	out := make(OccurrenceList, len(l))
	copy(out, l)
	return out
}

// IsSorted reports whether frequencies are non-increasing.
func (l OccurrenceList) IsSorted() bool {
	for i := 1; i < len(l); i++ {
		if l[i].Frequency > l[i-1].Frequency {
			return false
		}
	}
	return true
}
