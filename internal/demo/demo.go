// Package demo generates stand-in contacts, message histories and replies.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/murmur/internal/chat"
)

var firstNames = []string{
	"Ada", "Bruno", "Chen", "Dara", "Elif", "Farid", "Greta", "Hugo",
	"Ines", "Jonas", "Kemi", "Luca", "Maya", "Nils", "Omar", "Priya",
}

var lastNames = []string{
	"Alves", "Berg", "Costa", "Dubois", "Eriksen", "Fischer", "Garcia", "Haddad",
	"Ito", "Jensen", "Kowalski", "Lopez", "Moreau", "Novak", "Okafor", "Park",
}

var lines = []string{
	"Hey, how's it going?",
	"Did you see the game last night?",
	"I'll send you the file later.",
	"Can we move the meeting to 3pm?",
	"Lunch tomorrow?",
	"Just landed, talk soon.",
	"That sounds great!",
	"Haha, classic.",
	"Let me check and get back to you.",
	"Are we still on for Friday?",
	"Thanks for the help earlier.",
	"On my way.",
}

var replies = []string{
	"Sounds good to me!",
	"Haha, totally.",
	"Let me think about it.",
	"Sure, why not?",
	"I was just about to text you.",
	"Can't talk now, call you later.",
	"Interesting, tell me more.",
	"No way!",
	"Okay, see you then.",
	"👍",
}

// Generator produces random demo data. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	history int
	now     func() time.Time
}

// New creates a generator producing histories of historySize messages.
// A zero seed picks a random one.
func New(seed uint64, historySize int) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	if historySize <= 0 {
		historySize = 8
	}
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		history: historySize,
		now:     time.Now,
	}
}

// RandomUser returns a contact with a fresh id.
func (g *Generator) RandomUser() chat.User {
	g.mu.Lock()
	first := firstNames[g.rng.IntN(len(firstNames))]
	last := lastNames[g.rng.IntN(len(lastNames))]
	g.mu.Unlock()

	handle := strings.ToLower(first + "." + last)
	return chat.User{
		ID:     uuid.NewString(),
		Name:   first + " " + last,
		Email:  handle + "@example.com",
		Avatar: fmt.Sprintf("https://api.dicebear.com/7.x/initials/svg?seed=%s", handle),
	}
}

// RandomMessage returns a message from fromID to toID at ts. A message built
// as a conversation's last message is always delivered; older history may
// already be read.
func (g *Generator) RandomMessage(fromID, toID string, asLastMessage bool, ts time.Time) chat.Message {
	g.mu.Lock()
	text := lines[g.rng.IntN(len(lines))]
	status := chat.StatusRead
	if asLastMessage || g.rng.IntN(4) == 0 {
		status = chat.StatusDelivered
	}
	g.mu.Unlock()

	if ts.IsZero() {
		ts = g.now()
	}
	return chat.NewMessage(fromID, toID, text, status, ts)
}

// RandomReply returns a canned reply text.
func (g *Generator) RandomReply() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return replies[g.rng.IntN(len(replies))]
}

// Contacts returns n conversations with random contacts, each with a last
// message from the contact and, for roughly a third of them, some unread ones.
func (g *Generator) Contacts(self chat.User, n int) []chat.Conversation {
	convs := make([]chat.Conversation, 0, n)
	for i := range n {
		u := g.RandomUser()
		if u.ID == self.ID {
			continue
		}
		ts := g.now().Add(-time.Duration(i+1) * 7 * time.Minute)
		g.mu.Lock()
		unread := 0
		if g.rng.Float64() > 0.7 {
			unread = g.rng.IntN(5) + 1
		}
		g.mu.Unlock()
		convs = append(convs, chat.Conversation{
			User:        u,
			LastMessage: g.RandomMessage(u.ID, self.ID, true, ts),
			Unread:      unread,
		})
	}
	return convs
}

// History implements chat.HistoryProvider with a fresh thread ending now.
// Every call generates a different thread.
func (g *Generator) History(_ context.Context, self, peer chat.User) ([]chat.Message, error) {
	return g.Thread(self, peer, g.now()), nil
}

// Thread returns an alternating thread, ten minutes apart, whose newest
// message is ten minutes before end. The peer speaks first.
func (g *Generator) Thread(self, peer chat.User, end time.Time) []chat.Message {
	msgs := make([]chat.Message, 0, g.history)
	for i := range g.history {
		from, to := peer.ID, self.ID
		if i%2 != 0 {
			from, to = self.ID, peer.ID
		}
		ts := end.Add(-time.Duration(g.history-i) * 10 * time.Minute)
		msgs = append(msgs, g.RandomMessage(from, to, false, ts))
	}
	return msgs
}

// Reply implements chat.ReplySource.
func (g *Generator) Reply(_ context.Context, _, _ chat.User, _ []chat.Message) (string, error) {
	return g.RandomReply(), nil
}

// FormatTime renders a message timestamp: clock time for today, short date otherwise.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
