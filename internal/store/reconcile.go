package store

import "slices"

// matchOptimistic returns the index of the placeholder that an inbound
// confirmed message stands for, or -1. The candidate must be pending, from the
// same sender and carry byte-identical content; the earliest appended one wins.
// Placeholders keep their relative order in the list, so the lowest index is
// the oldest.
func matchOptimistic(list []Message, confirmed Message) int {
	for i, m := range list {
		if !m.Pending() {
			continue
		}
		if m.Sender.ID == confirmed.Sender.ID && m.Content == confirmed.Content {
			return i
		}
	}
	return -1
}

func indexOf(list []Message, id string) int {
	return slices.IndexFunc(list, func(m Message) bool { return m.ID == id })
}

// unionReadBy merges two readBy sets keeping first-seen order.
func unionReadBy(a, b []string) []string {
	out := slices.Clone(a)
	for _, id := range b {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
