package tui

import "github.com/matheus3301/murmur/internal/delivery"

// replyTracker follows reply state events to know which conversations have
// a reply in flight.
type replyTracker struct {
	pending map[string]map[string]struct{}
}

func newReplyTracker() *replyTracker {
	return &replyTracker{pending: make(map[string]map[string]struct{})}
}

// apply records ch. It reports true when a pending reply was abandoned.
func (r *replyTracker) apply(ch delivery.StateChange) (abandoned bool) {
	switch ch.To {
	case delivery.ReplyPending:
		sends := r.pending[ch.ConversationID]
		if sends == nil {
			sends = make(map[string]struct{})
			r.pending[ch.ConversationID] = sends
		}
		sends[ch.SendID] = struct{}{}
	case delivery.Delivered, delivery.Idle:
		r.remove(ch.ConversationID, ch.SendID)
		return ch.From == delivery.ReplyPending && ch.To == delivery.Idle
	}
	return false
}

func (r *replyTracker) remove(convID, sendID string) {
	sends := r.pending[convID]
	delete(sends, sendID)
	if len(sends) == 0 {
		delete(r.pending, convID)
	}
}

// typing returns the conversations with a reply in flight.
func (r *replyTracker) typing() map[string]bool {
	out := make(map[string]bool, len(r.pending))
	for id := range r.pending {
		out[id] = true
	}
	return out
}

func (r *replyTracker) reset() {
	clear(r.pending)
}
