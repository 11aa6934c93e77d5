/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package jitlog

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// upgrader mirrors scm/network.go's websocket endpoint. It sets no
// CheckOrigin, so gorilla's default applies: a request whose Origin
// header names a different host than the request is refused.
var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

// WebsocketSink streams every Trace event to one connected browser
// timeline viewer as a JSON text frame, the live-sink role
// scm/trace.go's io.WriteCloser field leaves open and scm/network.go's
// websocket endpoint shows how to fill for this codebase.
type WebsocketSink struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// Upgrade promotes an HTTP request to a websocket connection and
// returns a Sink that forwards every event to it. The caller is
// responsible for registering the result with Trace.AddSink.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WebsocketSink, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &WebsocketSink{ws: ws}, nil
}

type wsEvent struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Phase string `json:"ph"`
	PID   int    `json:"pid"`
	TID   int    `json:"tid"`
}

func (s *WebsocketSink) Write(name, cat, phase string, pid, tid int) {
	b, err := json.Marshal(wsEvent{Name: name, Cat: cat, Phase: phase, PID: pid, TID: tid})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// a closed or broken connection should not take the compile down
	// with it; dropping the frame is the correct behavior for a
	// best-effort debug stream.
	_ = s.ws.WriteMessage(websocket.TextMessage, b)
}

// Close closes the underlying websocket connection.
func (s *WebsocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Close()
}
