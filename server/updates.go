// Copyright (c) 2026 BVK Chaitanya

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// doUpdates streams a robot's poll-cycle events over a websocket. Each
// message is one JSON-encoded robot.CycleEvent. The robot is selected with
// the "robot" query parameter.
func (s *Server) doUpdates(w http.ResponseWriter, req *http.Request) {
	name := req.URL.Query().Get("robot")
	r, ok := s.robotMap.Load(name)
	if !ok {
		http.Error(w, "robot not found", http.StatusNotFound)
		return
	}

	recv, err := r.Subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	eventCh, err := topic.ReceiveCh(recv)
	if err != nil {
		recv.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		recv.Close()
		slog.Warn("could not upgrade updates connection", "robot", name, "err", err)
		return
	}

	s.cg.Go(func(ctx context.Context) {
		defer conn.Close()
		defer recv.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-eventCh:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					slog.Warn("could not write cycle event to websocket", "robot", name, "err", err)
					return
				}
			}
		}
	})
}
