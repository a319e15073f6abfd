package game

import (
	"sync"
	"time"

	"github.com/udisondev/otgate/internal/model"
)

// WaitList is the game-service admission queue. Entries are FIFO by
// arrival; premium accounts are counted ahead of free ones when
// computing a slot. At most one entry exists per guid.
type WaitList struct {
	mu    sync.Mutex
	slots []waitSlot
}

type waitSlot struct {
	deadline time.Time
	guid     uint32
	premium  bool
}

// Slot computes the player's wait-list position, 0 meaning admitted.
// retrySeconds tells the client when to try again; on a refused login
// the player's entry is refreshed (or created) with a deadline that
// outlives the retry window.
func (w *WaitList) Slot(p *model.Player, playersOnline, maxPlayers int) (slot, retrySeconds int) {
	if p.HasFlag(model.FlagCanAlwaysLogin) || p.IsGamemaster() {
		return 0, 0
	}

	freeSlots := maxPlayers - playersOnline

	w.mu.Lock()
	defer w.mu.Unlock()

	if maxPlayers == 0 || (len(w.slots) == 0 && freeSlots > 0) {
		return 0, 0
	}

	// Expired entries leave from the front before any counting.
	now := time.Now()
	for len(w.slots) > 0 && !w.slots[0].deadline.After(now) {
		w.slots = w.slots[1:]
	}

	// Count entries ahead of the player, or the whole queue when the
	// player has no entry yet.
	idx := -1
	var premiumAhead, freeAhead int
	for i, s := range w.slots {
		if !s.deadline.After(now) {
			continue
		}
		if s.guid == p.GUID {
			idx = i
			break
		}
		if s.premium {
			premiumAhead++
		} else {
			freeAhead++
		}
	}

	slot = premiumAhead + 1
	if !p.Premium {
		slot += freeAhead
	}

	retrySeconds = min(((slot/5)+1)*5, 60)

	if slot <= freeSlots {
		if idx >= 0 {
			w.slots = append(w.slots[:idx], w.slots[idx+1:]...)
		}
		return 0, retrySeconds
	}

	deadline := now.Add(time.Duration(retrySeconds+15) * time.Second)
	if idx >= 0 {
		w.slots[idx].deadline = deadline
	} else {
		w.slots = append(w.slots, waitSlot{deadline: deadline, guid: p.GUID, premium: p.Premium})
	}
	return slot, retrySeconds
}

// Len returns the number of queued entries.
func (w *WaitList) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.slots)
}
