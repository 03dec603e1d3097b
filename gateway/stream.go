package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"nhooyr.io/websocket"

	"rewardhub/core/types"
	"rewardhub/storage/journal"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "event journal disabled"})
		return
	}
	q := journal.Query{
		Type:       r.URL.Query().Get("type"),
		CampaignID: r.URL.Query().Get("campaign"),
	}
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || after < 0 {
			writeBadRequest(w, errInvalidQuery("after"))
			return
		}
		q.AfterSequence = after
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeBadRequest(w, errInvalidQuery("limit"))
			return
		}
		q.Limit = limit
	}
	entries, err := s.journal.List(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": entries})
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid query parameter " + string(e) }

// handleEventStream pushes committed events to a websocket client. The
// optional "type" query parameter filters by event type.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "event stream disabled"})
		return
	}
	filter := r.URL.Query().Get("type")
	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Clients never send data; CloseRead cancels ctx once they go away.
	ctx := conn.CloseRead(r.Context())
	updates, cancel := s.hub.Subscribe(64)
	defer cancel()
	if err := streamEvents(ctx, conn, updates, filter); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan *types.Event, filter string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if filter != "" && evt.Type != filter {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
