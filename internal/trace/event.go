package trace

import (
	"strconv"
	"time"
)

// Kind is the type of a trace event.
type Kind uint8

const (
	KindBegin     Kind = iota + 1 // span opened
	KindEnd                       // span closed, Elapsed is set
	KindPoint                     // instant event
	KindHeartbeat                 // periodic liveness signal with gauge values
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeServer   Scope = iota + 1 // session, workspace indexing, CLI commands
	ScopeDocument                  // one analysis or diagnostic computation
	ScopePass                      // parse, directives, rule walk
	ScopeNode                      // per-node rule evaluation
)

func (s Scope) String() string {
	switch s {
	case ScopeServer:
		return "server"
	case ScopeDocument:
		return "document"
	case ScopePass:
		return "pass"
	case ScopeNode:
		return "node"
	}
	return "unknown"
}

// Doc identifies the document version an event concerns.
type Doc struct {
	URI     string
	Version int32
}

// IsZero reports whether d names no document.
func (d Doc) IsZero() bool { return d.URI == "" }

// String renders "uri@version", or the bare URI for unversioned documents
// read from disk.
func (d Doc) String() string {
	if d.Version <= 0 {
		return d.URI
	}
	return d.URI + "@" + strconv.FormatInt(int64(d.Version), 10)
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string // "analyze", "diagnostics", "rules", "index", ...
	Doc      Doc
	Elapsed  time.Duration
	Detail   string
	Extra    map[string]string
}
