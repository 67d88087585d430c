package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/talentboard/internal/evaluation"
	"github.com/onnwee/talentboard/internal/export"
	"github.com/onnwee/talentboard/internal/live"
	"github.com/onnwee/talentboard/internal/middleware"
)

// LeaderboardHandlers serves the leaderboard export and the live update stream.
type LeaderboardHandlers struct {
	service     *evaluation.Service
	broadcaster *live.Broadcaster
	upgrader    websocket.Upgrader
	now         func() time.Time
}

// NewLeaderboardHandlers creates a new LeaderboardHandlers instance.
// allowedOrigins lists the browser origins that may open the WebSocket; when
// empty only same-host origins are accepted.
func NewLeaderboardHandlers(service *evaluation.Service, broadcaster *live.Broadcaster, allowedOrigins []string) *LeaderboardHandlers {
	return &LeaderboardHandlers{
		service:     service,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		now: time.Now,
	}
}

// ExportLeaderboard handles GET /api/leaderboard/export.
// Responds with the current leaderboard as an xlsx attachment.
func (h *LeaderboardHandlers) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	board, err := h.service.Leaderboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load leaderboard for export", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to export leaderboard")
		return
	}

	generatedAt := h.now().UTC()
	var buf bytes.Buffer
	if err := export.WriteLeaderboard(&buf, board, generatedAt); err != nil {
		slog.ErrorContext(ctx, "failed to render leaderboard workbook", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to export leaderboard")
		return
	}

	filename := fmt.Sprintf("leaderboard-%s.xlsx", generatedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(ctx, "failed to write leaderboard workbook", "error", err)
	}
}

// StreamLeaderboard handles GET /api/leaderboard/ws.
// The client receives a snapshot on connect and a rankings_updated message
// after every recompute. Messages sent by the client are ignored.
func (h *LeaderboardHandlers) StreamLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	board, rankedCount, err := h.service.Snapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load leaderboard snapshot", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch leaderboard")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	h.broadcaster.Subscribe(conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "leaderboard subscriber connected",
		"request_id", requestID,
		"subscribers", h.broadcaster.ConnectionCount(),
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "leaderboard subscriber disconnected", "request_id", requestID)
	}()

	snapshot := evaluation.RankingsUpdate{
		Type:        live.EventSnapshot,
		RankedCount: rankedCount,
		Leaderboard: board,
		At:          h.now().UTC(),
	}
	if err := h.broadcaster.Send(conn, snapshot); err != nil {
		slog.ErrorContext(ctx, "failed to queue leaderboard snapshot", "error", err)
		return
	}

	// Read until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "leaderboard websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// originChecker accepts requests without an Origin header, origins on the
// allowlist, and, when the allowlist is empty, origins matching the request host.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
