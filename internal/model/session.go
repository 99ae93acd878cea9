package model

// SessionAttrKeys are the registry columns copied into metadata records.
var SessionAttrKeys = []string{
	"runMode",
	"diff",
	"view",
	"seed",
	"studyId",
	"phase",
	"conditionGroup",
	"gameVersion",
}

type SessionAttrs map[string]string

// Registry holds session-level attributes. rows counts registry rows per session so
// that ambiguous (duplicated) sessions can be skipped.
type Registry struct {
	attrs map[string]SessionAttrs
	rows  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		attrs: make(map[string]SessionAttrs),
		rows:  make(map[string]int),
	}
}

func (r *Registry) Add(sessionID string, attrs SessionAttrs) {
	r.rows[sessionID]++
	r.attrs[sessionID] = attrs
}

// Lookup returns the attributes of a session registered exactly once.
func (r *Registry) Lookup(sessionID string) (SessionAttrs, bool) {
	if r == nil || r.rows[sessionID] != 1 {
		return nil, false
	}
	return r.attrs[sessionID], true
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}
