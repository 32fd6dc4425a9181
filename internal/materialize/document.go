package materialize

import "github.com/skifflog/skiff/internal/entry"

// Document is the materialized state of one logical object: the fold of its
// operation history in causal order.
type Document struct {
	// ID is the hash of the create entry that started the document.
	ID string

	// Fields is the current visible field map in raw (untagged) form.
	// Empty after deletion.
	Fields map[string]any

	// Meta carries lifecycle flags and the folded edit history.
	Meta Meta
}

// Meta is the document metadata accumulated during the fold.
type Meta struct {
	Author string
	Schema string

	// Deleted marks a tombstone. Terminal: a deleted document never folds
	// another entry, and it stays in the set.
	Deleted bool

	// Edited is set once any update has been applied.
	Edited bool

	// Entries is the history of records folded into this document, in fold
	// order. Entries arriving after the tombstone are not recorded.
	Entries []entry.EntryRecord
}

// DocumentSet is an insertion-ordered collection of documents, keyed by id
// and ordered by first-create sighting. The explicit order makes test
// assertions deterministic; callers should not read anything else into it.
type DocumentSet struct {
	order []string
	docs  map[string]*Document
}

// NewDocumentSet creates an empty set.
func NewDocumentSet() *DocumentSet {
	return &DocumentSet{docs: make(map[string]*Document)}
}

// Get returns the document with the given id.
func (s *DocumentSet) Get(id string) (*Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// Len returns the number of documents, tombstones included.
func (s *DocumentSet) Len() int {
	return len(s.order)
}

// IDs returns document ids in insertion order.
func (s *DocumentSet) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Documents returns all documents in insertion order.
func (s *DocumentSet) Documents() []*Document {
	docs := make([]*Document, len(s.order))
	for i, id := range s.order {
		docs[i] = s.docs[id]
	}
	return docs
}

func (s *DocumentSet) add(doc *Document) {
	s.order = append(s.order, doc.ID)
	s.docs[doc.ID] = doc
}
