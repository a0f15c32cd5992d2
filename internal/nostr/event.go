package nostr

// Event kinds used by the marketplace.
const (
	KindProfileMetadata   = 0
	KindOrder             = 16
	KindStall             = 30017
	KindClassifiedListing = 30402
)

// Event is the relay wire format (NIP-01).
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Tag returns the first value of the named tag, or "" when absent.
func (e *Event) Tag(name string) string {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1]
		}
	}
	return ""
}

// TagValues returns all values of the named tag in tag order,
// duplicates preserved.
func (e *Event) TagValues(name string) []string {
	var out []string
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			out = append(out, t[1])
		}
	}
	return out
}

// FindTag returns the full tag with the given name, or nil.
func (e *Event) FindTag(name string) []string {
	for _, t := range e.Tags {
		if len(t) >= 1 && t[0] == name {
			return t
		}
	}
	return nil
}

// Filter selects events on a relay subscription.
type Filter struct {
	Kinds       []int    `json:"kinds,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Hashtags    []string `json:"#t,omitempty"`
	Identifiers []string `json:"#d,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}
