package vote

import "sync"

// Registry is the process-wide table of open votes. It is the only shared
// mutable state in the vote core; all access goes through the mutex and no
// method performs I/O.
type Registry struct {
	mu    sync.Mutex
	votes map[string]*Vote
}

func NewRegistry() *Registry {
	return &Registry{votes: make(map[string]*Vote)}
}

func (r *Registry) Put(v Vote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := v
	r.votes[v.ID] = &stored
}

func (r *Registry) Get(id string) (Vote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.votes[id]
	if !ok {
		return Vote{}, false
	}
	return *v, true
}

// FindByMessageID resolves a ballot message back to its vote. Linear scan:
// there are at most a handful of concurrent votes.
func (r *Registry) FindByMessageID(messageID string) (Vote, bool) {
	if messageID == "" {
		return Vote{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.VoteMessageID == messageID {
			return *v, true
		}
	}
	return Vote{}, false
}

// SetMessageID attaches the ballot message to a registered vote. This is the
// one permitted mutation after Put.
func (r *Registry) SetMessageID(id, messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.votes[id]
	if !ok {
		return false
	}
	v.VoteMessageID = messageID
	return true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.votes, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.votes)
}
