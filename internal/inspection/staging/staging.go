// Package staging accumulates photo evidence locally before submission.
// Nothing here touches the network: upload is deferred to the submission
// pipeline so an abandoned form costs no storage.
package staging

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Photo is a locally held binary not yet uploaded to durable storage.
type Photo struct {
	Data        []byte
	ContentType string
}

// Preview is the transient local handle handed to the display layer.
type Preview struct {
	ID   string
	Name string
}

type key struct {
	questionnaireID string
	questionID      string
}

// Store keeps per-question staged photo lists with parallel preview handles.
// Additions append, never replace; removal by index keeps both lists in
// lock-step. Safe for concurrent use: mutations arrive from request
// goroutines while validation counts the same lists.
type Store struct {
	mu       sync.RWMutex
	photos   map[key][]Photo
	previews map[key][]Preview
}

func NewStore() *Store {
	return &Store{
		photos:   make(map[key][]Photo),
		previews: make(map[key][]Preview),
	}
}

// Add appends newly selected photos to a question's staged list and returns
// the preview handles created for them.
func (s *Store) Add(questionnaireID, questionID string, photos ...Photo) []Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{questionnaireID, questionID}
	added := make([]Preview, 0, len(photos))
	for i := range photos {
		preview := Preview{
			ID:   uuid.NewString(),
			Name: fmt.Sprintf("photo-%d", len(s.photos[k])+i+1),
		}
		added = append(added, preview)
	}
	s.photos[k] = append(s.photos[k], photos...)
	s.previews[k] = append(s.previews[k], added...)
	return added
}

// Remove drops the staged photo and its preview handle at the given index.
func (s *Store) Remove(questionnaireID, questionID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{questionnaireID, questionID}
	list := s.photos[k]
	if index < 0 || index >= len(list) {
		return fmt.Errorf("photo index %d out of range (have %d)", index, len(list))
	}
	s.photos[k] = append(list[:index], list[index+1:]...)
	previews := s.previews[k]
	s.previews[k] = append(previews[:index], previews[index+1:]...)
	return nil
}

// Photos returns a snapshot of the staged photos for a question in staging order.
func (s *Store) Photos(questionnaireID, questionID string) []Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.photos[key{questionnaireID, questionID}]
	out := make([]Photo, len(list))
	copy(out, list)
	return out
}

// Previews returns a snapshot of the preview handles for a question, parallel
// to Photos.
func (s *Store) Previews(questionnaireID, questionID string) []Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.previews[key{questionnaireID, questionID}]
	out := make([]Preview, len(list))
	copy(out, list)
	return out
}

// Count returns the number of staged photos for a question.
func (s *Store) Count(questionnaireID, questionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos[key{questionnaireID, questionID}])
}
