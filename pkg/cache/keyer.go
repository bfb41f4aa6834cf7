package cache

import "strings"

// Keyer derives cache keys.
type Keyer interface {
	// SelectionKey identifies a framework pack selection. fingerprint names
	// the catalog and RID graph the selection ran against.
	SelectionKey(fingerprint string, request any) string
	// FeedKey identifies a feed's version listing of one package.
	FeedKey(feed, id string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SelectionKey hashes the fingerprint together with the JSON form of
// request.
func (DefaultKeyer) SelectionKey(fingerprint string, request any) string {
	return hashKey("select", fingerprint, request)
}

// FeedKey returns "feed:<feed>:<id>" with the id lower-cased.
func (DefaultKeyer) FeedKey(feed, id string) string {
	return "feed:" + feed + ":" + strings.ToLower(id)
}
