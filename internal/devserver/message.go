package devserver

import (
	"github.com/alfycore/veko/internal/constants"
)

// Message is one push-protocol frame. Type selects which of the other
// fields are meaningful; frames are constructed, sent and forgotten.
type Message struct {
	Type    string          `json:"type"`
	Message string          `json:"message,omitempty"`
	File    string          `json:"file,omitempty"`
	Route   string          `json:"route,omitempty"`
	Routes  []string        `json:"routes,omitempty"`
	Config  *PrefetchConfig `json:"config,omitempty"`
	Stack   string          `json:"stack,omitempty"`
}

// PrefetchConfig is the prefetch hint shipped with a routes frame.
type PrefetchConfig struct {
	Enabled       bool  `json:"enabled"`
	PrefetchDelay int64 `json:"prefetchDelay"`
}

// ConnectedMessage greets a freshly connected client.
func ConnectedMessage() Message {
	return Message{Type: constants.MsgConnected, Message: "veko live reload connected"}
}

// RoutesMessage lists prefetch candidates for a client.
func RoutesMessage(routes []string, cfg *PrefetchConfig) Message {
	return Message{Type: constants.MsgRoutes, Routes: routes, Config: cfg}
}

// RouteReloadMessage announces that one route's handler changed.
func RouteReloadMessage(file, route string) Message {
	return Message{Type: constants.MsgRouteReload, File: file, Route: route}
}

// ViewReloadMessage announces a changed template.
func ViewReloadMessage(file string) Message {
	return Message{Type: constants.MsgViewReload, File: file}
}

// LayoutReloadMessage announces a changed layout template.
func LayoutReloadMessage(file string) Message {
	return Message{Type: constants.MsgLayoutReload, File: file}
}

// ReloadMessage requests an unscoped full refresh.
func ReloadMessage() Message {
	return Message{Type: constants.MsgReload}
}

// ErrorMessage surfaces a server-side error to the developer console.
func ErrorMessage(msg, stack string) Message {
	return Message{Type: constants.MsgError, Message: msg, Stack: stack}
}
