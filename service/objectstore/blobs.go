package objectstore

import (
	gosync "sync"

	"github.com/google/uuid"
)

const blobScheme = "blob:"

type blob struct {
	fileName string
	data     []byte
}

// BlobStore hands out ephemeral references to attachment bytes awaiting
// upload. A reference is valid until released; the upload path releases it
// on success and failure alike, so an unreleased reference indicates a bug.
type BlobStore struct {
	mu    gosync.Mutex
	blobs map[string]blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

func (s *BlobStore) Put(fileName string, data []byte) string {
	ref := blobScheme + uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = blob{fileName: fileName, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return ref
}

func (s *BlobStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[ref]
	if !ok {
		return nil, false
	}
	return b.data, true
}

func (s *BlobStore) Release(ref string) {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
}

func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
