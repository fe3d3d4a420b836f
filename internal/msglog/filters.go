package msglog

import (
	"strings"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
)

// FilterText returns the messages whose text contains term,
// case-insensitively. An empty term matches everything. Pure: the store is
// not consulted or mutated.
func FilterText(msgs []session.Message, term string) []session.Message {
	if term == "" {
		return msgs
	}
	needle := strings.ToLower(term)
	out := make([]session.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Text), needle) {
			out = append(out, m)
		}
	}
	return out
}

// FilterKind returns the messages of one kind. An empty kind matches
// everything.
func FilterKind(msgs []session.Message, kind session.MessageKind) []session.Message {
	if kind == "" {
		return msgs
	}
	out := make([]session.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}
