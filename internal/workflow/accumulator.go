package workflow

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAccumulatorMax bounds the accumulator when no cap is configured.
const DefaultAccumulatorMax = 50

// DefaultClipSeparator joins combined clips.
const DefaultClipSeparator = "\n\n---\n\n"

// Clip is one captured piece of content waiting to be bound into a
// document.
type Clip struct {
	ID      string
	Content string
	Added   time.Time
	hash    string
}

// Accumulator collects clips so several captures can become one document.
// Duplicate content is ignored; when full, the oldest clip is dropped.
type Accumulator struct {
	mu     sync.Mutex
	max    int
	clips  []Clip
	hashes map[string]bool
	now    func() time.Time
}

// NewAccumulator builds an accumulator holding at most max clips.
func NewAccumulator(max int) *Accumulator {
	if max <= 0 {
		max = DefaultAccumulatorMax
	}
	return &Accumulator{
		max:    max,
		hashes: map[string]bool{},
		now:    time.Now,
	}
}

// Add appends content unless it is blank or already present. It reports the
// stored clip and whether anything was added.
func (a *Accumulator) Add(content string) (Clip, bool) {
	if strings.TrimSpace(content) == "" {
		return Clip{}, false
	}
	sum := md5.Sum([]byte(content))
	hash := hex.EncodeToString(sum[:])

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hashes[hash] {
		return Clip{}, false
	}
	if len(a.clips) >= a.max {
		oldest := a.clips[0]
		a.clips = a.clips[1:]
		delete(a.hashes, oldest.hash)
	}
	clip := Clip{
		ID:      uuid.NewString(),
		Content: content,
		Added:   a.now(),
		hash:    hash,
	}
	a.clips = append(a.clips, clip)
	a.hashes[hash] = true
	return clip, true
}

// Clips returns the stored clips oldest first.
func (a *Accumulator) Clips() []Clip {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Clip(nil), a.clips...)
}

// Len reports the number of stored clips.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clips)
}

// Remove drops the clip with the given id.
func (a *Accumulator) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, clip := range a.clips {
		if clip.ID == id {
			a.clips = append(a.clips[:i], a.clips[i+1:]...)
			delete(a.hashes, clip.hash)
			return true
		}
	}
	return false
}

// Clear drops every clip.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips = nil
	a.hashes = map[string]bool{}
}

// Combine joins all clips with separator (the default divider when empty),
// oldest first.
func (a *Accumulator) Combine(separator string) string {
	if separator == "" {
		separator = DefaultClipSeparator
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	parts := make([]string, 0, len(a.clips))
	for _, clip := range a.clips {
		parts = append(parts, clip.Content)
	}
	return strings.Join(parts, separator)
}

// AccumulatorStats describes the combined payload.
type AccumulatorStats struct {
	Count      int
	Characters int
	Oldest     time.Time
	Newest     time.Time
}

// Stats summarizes the stored clips.
func (a *Accumulator) Stats() AccumulatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := AccumulatorStats{Count: len(a.clips)}
	for _, clip := range a.clips {
		stats.Characters += len(clip.Content)
	}
	if len(a.clips) > 0 {
		stats.Oldest = a.clips[0].Added
		stats.Newest = a.clips[len(a.clips)-1].Added
	}
	return stats
}
