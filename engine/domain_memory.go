package engine

import (
	"sync"
	"time"
)

// domainEntry stores the preferred engine for a domain with a TTL.
type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last produced text for each domain.
// Entries expire after the TTL; expired entries are dropped on read and by
// a background sweep that runs until Stop.
type DomainMemory struct {
	mu      sync.Mutex
	entries map[string]domainEntry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts the
// sweep, which runs every sweepEvery.
func NewDomainMemory(ttl, sweepEvery time.Duration) *DomainMemory {
	dm := &DomainMemory{
		entries: make(map[string]domainEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go dm.sweepLoop(sweepEvery)
	}
	return dm
}

// Get returns the remembered engine name for a domain, or "" if not found / expired.
func (dm *DomainMemory) Get(domain string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	entry, ok := dm.entries[domain]
	if !ok {
		return ""
	}
	if dm.now().After(entry.expiresAt) {
		delete(dm.entries, domain)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.mu.Lock()
	dm.entries[domain] = domainEntry{
		engineName: engineName,
		expiresAt:  dm.now().Add(dm.ttl),
	}
	dm.mu.Unlock()
}

// Delete forgets a domain (e.g. after the remembered engine fails).
func (dm *DomainMemory) Delete(domain string) {
	dm.mu.Lock()
	delete(dm.entries, domain)
	dm.mu.Unlock()
}

// Stop terminates the background sweep. It is safe to call more than once.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.sweep()
		}
	}
}

func (dm *DomainMemory) sweep() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	now := dm.now()
	for domain, entry := range dm.entries {
		if now.After(entry.expiresAt) {
			delete(dm.entries, domain)
		}
	}
}
