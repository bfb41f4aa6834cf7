package cache

// ScopedKeyer prefixes every key of an inner [Keyer], so entries written by
// different tool versions or install roots sharing one cache directory
// never collide.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a DefaultKeyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SelectionKey(fingerprint string, request any) string {
	return k.prefix + k.inner.SelectionKey(fingerprint, request)
}

func (k *ScopedKeyer) FeedKey(feed, id string) string {
	return k.prefix + k.inner.FeedKey(feed, id)
}
