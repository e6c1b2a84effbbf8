package stream

// Aggregator collects decoded content fragments in arrival order. It never
// merges or deduplicates; joining fragments is the caller's concern.
type Aggregator struct {
	fragments []string
}

// Append records a fragment.
func (a *Aggregator) Append(content string) {
	a.fragments = append(a.fragments, content)
}

// Len returns the number of fragments collected so far.
func (a *Aggregator) Len() int {
	return len(a.fragments)
}

// Finalize returns a copy of the collected fragments in arrival order.
func (a *Aggregator) Finalize() []string {
	out := make([]string, len(a.fragments))
	copy(out, a.fragments)
	return out
}
