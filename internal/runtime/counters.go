package runtime

import "sync"

// attemptCounters tracks bounded-retry state per channel and node. Counters
// live in process memory only: a restart forgives prior attempts, which is
// acceptable because the caller re-enters the node and retries from zero.
type attemptCounters struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func newAttemptCounters() *attemptCounters {
	return &attemptCounters{counts: map[string]map[string]int{}}
}

// get returns the current attempt count for a node on a channel.
func (a *attemptCounters) get(uid, key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[uid][key]
}

// increment bumps the counter and returns the new value.
func (a *attemptCounters) increment(uid, key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	byKey := a.counts[uid]
	if byKey == nil {
		byKey = map[string]int{}
		a.counts[uid] = byKey
	}
	byKey[key]++
	return byKey[key]
}

// clear resets one counter so a later visit starts a fresh attempt budget.
func (a *attemptCounters) clear(uid, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if byKey := a.counts[uid]; byKey != nil {
		delete(byKey, key)
		if len(byKey) == 0 {
			delete(a.counts, uid)
		}
	}
}

// clearChannel drops every counter for a channel, used when a flow ends.
func (a *attemptCounters) clearChannel(uid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, uid)
}
