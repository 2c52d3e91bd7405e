package index

import (
	"sort"
	"sync"
)

// ProbeObserver receives the binary-search probe sequence of every
// insertion performed during a merge.
type ProbeObserver func(keyword string, probes []int)

// KeywordIndex maps each keyword to its OccurrenceList. A merge holds the
// write lock for the whole document, so readers never see a document half
// merged.
type KeywordIndex struct {
	mu          sync.RWMutex
	lists       map[string]OccurrenceList
	occurrences int
	version     uint64
	observer    ProbeObserver
}

func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{
		lists: make(map[string]OccurrenceList),
	}
}

// SetProbeObserver installs fn to be called after each insertion. It must
// be set before the first merge.
func (k *KeywordIndex) SetProbeObserver(fn ProbeObserver) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.observer = fn
}

// MergeDocument merges one document's keyword occurrences into the index.
// A new keyword gets a single-element list; an existing keyword gets the
// occurrence appended and moved into place with InsertLast. Documents must
// be merged one at a time in ingestion order, because that order decides
// how equal frequencies are ranked.
func (k *KeywordIndex) MergeDocument(kws map[string]Occurrence) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for keyword, occ := range kws {
		list, exists := k.lists[keyword]
		if !exists {
			k.lists[keyword] = OccurrenceList{occ}
			k.occurrences++
			continue
		}
		list = list.Append(occ)
		probes := list.InsertLast()
		k.lists[keyword] = list
		k.occurrences++
		if k.observer != nil {
			k.observer(keyword, probes)
		}
	}
	k.version++
}

// Lookup returns a copy of the keyword's list.
func (k *KeywordIndex) Lookup(keyword string) (OccurrenceList, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	list, ok := k.lists[keyword]
	if !ok {
		return nil, false
	}
	return list.Clone(), true
}

// Lists returns copies of the lists for the given keywords, read under a
// single lock. Missing keywords yield nil entries.
func (k *KeywordIndex) Lists(keywords ...string) []OccurrenceList {
	lists, _ := k.Read(keywords...)
	return lists
}

// Read is Lists plus the index version the lists were taken at.
func (k *KeywordIndex) Read(keywords ...string) ([]OccurrenceList, uint64) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]OccurrenceList, len(keywords))
	for i, keyword := range keywords {
		if list, ok := k.lists[keyword]; ok {
			out[i] = list.Clone()
		}
	}
	return out, k.version
}

// Keywords returns all indexed keywords in lexical order.
func (k *KeywordIndex) Keywords() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keywords := make([]string, 0, len(k.lists))
	for keyword := range k.lists {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return keywords
}

func (k *KeywordIndex) Snapshot() []KeywordEntry {
	k.mu.RLock()
	defer k.mu.RUnlock()
	entries := make([]KeywordEntry, 0, len(k.lists))
	for keyword, list := range k.lists {
		entries = append(entries, KeywordEntry{
			Keyword:     keyword,
			Occurrences: list.Clone(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Keyword < entries[j].Keyword
	})
	return entries
}

func (k *KeywordIndex) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.lists)
}

// Occurrences returns the total number of occurrences across all lists.
func (k *KeywordIndex) Occurrences() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.occurrences
}

// Version increases by one with every merged document.
func (k *KeywordIndex) Version() uint64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.version
}
