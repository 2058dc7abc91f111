package lifecycle

import (
	"strings"
	"sync"
)

// Summary counts the technician's tickets by server status, as shown on
// the home screen.
type Summary struct {
	Total    int
	ByStatus map[string]int
}

func (s Summary) Count(status string) int {
	return s.ByStatus[strings.ToLower(status)]
}

func Summarize(tickets []RemoteTicket) Summary {
	summary := Summary{ByStatus: make(map[string]int)}
	for _, t := range tickets {
		status := strings.ToLower(strings.TrimSpace(t.Status))
		if status == "" {
			status = "unknown"
		}
		summary.ByStatus[status]++
		summary.Total++
	}
	return summary
}

const recentLimit = 5

// RecentTickets remembers the most recently opened ticket ids, newest
// last. Reopening a ticket moves it to the end.
type RecentTickets struct {
	mu  sync.Mutex
	ids []string
}

func NewRecentTickets(ids []string) *RecentTickets {
	r := &RecentTickets{}
	for _, id := range ids {
		r.Add(id)
	}
	return r
}

func (r *RecentTickets) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.ids {
		if existing == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	if len(r.ids) >= recentLimit {
		r.ids = r.ids[1:]
	}
	r.ids = append(r.ids, id)
}

func (r *RecentTickets) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
