package source

import (
	"sort"
	"sync"
)

// Store holds the open documents keyed by URI.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open records a fresh document, replacing any previous version.
func (s *Store) Open(uri, text string, version int32) *Document {
	doc := NewDocument(uri, text, version)
	s.Put(doc)
	return doc
}

// Put stores doc under its URI.
func (s *Store) Put(doc *Document) {
	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()
}

// Change applies edits to an open document. ok is false when the document
// is unknown.
func (s *Store) Change(uri string, version int32, changes []Change) (doc *Document, span LineSpan, full, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, found := s.docs[uri]
	if !found {
		return nil, LineSpan{}, false, false
	}
	doc, span, full = prev.Apply(version, changes)
	s.docs[uri] = doc
	return doc, span, full, true
}

func (s *Store) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// URIs returns the open document URIs in sorted order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		out = append(out, uri)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
