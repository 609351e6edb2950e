package phototag

import (
	"bytes"
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash values
// below which images are considered perceptually identical.
const dedupThreshold = 10

// PerceptualHash returns the difference hash of an encoded image as a
// string ("d:<hex>"), or "" if the image cannot be decoded.
func PerceptualHash(data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return ""
	}
	return hash.ToString()
}

// DuplicateIndex finds near-identical photos by perceptual hash.
// It is safe for concurrent use.
type DuplicateIndex struct {
	mu     sync.Mutex
	hashes map[string]*goimagehash.ImageHash // photo ID -> hash
}

// NewDuplicateIndex returns an empty index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{hashes: make(map[string]*goimagehash.ImageHash)}
}

// Add records the hash of a photo. Malformed hashes are ignored.
func (d *DuplicateIndex) Add(id, hash string) {
	h, err := goimagehash.ImageHashFromString(hash)
	if err != nil {
		return
	}
	d.mu.Lock()
	d.hashes[id] = h
	d.mu.Unlock()
}

// Remove forgets a photo.
func (d *DuplicateIndex) Remove(id string) {
	d.mu.Lock()
	delete(d.hashes, id)
	d.mu.Unlock()
}

// Match returns the ID of the closest indexed photo within the dedup
// threshold. If hashing fails for any reason, no match is reported
// (graceful degradation).
func (d *DuplicateIndex) Match(hash string) (string, bool) {
	h, err := goimagehash.ImageHashFromString(hash)
	if err != nil {
		return "", false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bestID, best := "", dedupThreshold
	for id, other := range d.hashes {
		dist, err := h.Distance(other)
		if err != nil || dist >= dedupThreshold {
			continue
		}
		if bestID == "" || dist < best || (dist == best && id < bestID) {
			bestID, best = id, dist
		}
	}
	return bestID, bestID != ""
}
