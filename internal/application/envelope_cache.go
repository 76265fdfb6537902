package application

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/example/meetingsync/internal/envelope"
	"github.com/example/meetingsync/internal/meeting"
)

// envelopeCache stores recently decrypted envelopes so sibling records whose
// content hash is unchanged are not decrypted again. Entries are keyed by
// slot id, version, content hash, and a digest of the key material that
// opened the record, so any mutation of a record naturally misses and a hit
// is only served back to a caller holding the same keys; Invalidate
// additionally clears everything after a write.
type envelopeCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]envelopeCacheEntry
}

type envelopeCacheEntry struct {
	envelope  meeting.MeetingEnvelope
	expiresAt time.Time
}

func newEnvelopeCache(ttl time.Duration, maxEntries int, now func() time.Time) *envelopeCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &envelopeCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]envelopeCacheEntry),
	}
}

func (c *envelopeCache) Get(slot meeting.Slot, material envelope.KeyMaterial) (meeting.MeetingEnvelope, bool) {
	if c == nil {
		return meeting.MeetingEnvelope{}, false
	}
	key := envelopeCacheKey(slot, material)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return meeting.MeetingEnvelope{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return meeting.MeetingEnvelope{}, false
	}
	return entry.envelope, true
}

func (c *envelopeCache) Store(slot meeting.Slot, material envelope.KeyMaterial, env meeting.MeetingEnvelope) {
	if c == nil || slot.ID == "" {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[envelopeCacheKey(slot, material)] = envelopeCacheEntry{envelope: env, expiresAt: expiry}
}

func (c *envelopeCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]envelopeCacheEntry)
	c.mu.Unlock()
}

func (c *envelopeCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *envelopeCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func envelopeCacheKey(slot meeting.Slot, material envelope.KeyMaterial) string {
	// The private key never ends up in the map; only its digest does.
	digest := sha256.Sum256([]byte(material.PublicKey + "\x00" + material.PrivateKey))
	return fmt.Sprintf("%s|%d|%s|%x", slot.ID, slot.Version, slot.ContentHash, digest[:8])
}
