package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/realtime"
)

// RealtimeHandler upgrades clients onto the realtime hub.
type RealtimeHandler struct {
	hub     *realtime.Hub
	allowed map[string]struct{}
}

// NewRealtimeHandler constructs a RealtimeHandler allowing every known stream.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	allowed := make(map[string]struct{})
	for _, stream := range realtime.Streams() {
		allowed[stream] = struct{}{}
	}
	return &RealtimeHandler{hub: hub, allowed: allowed}
}

// Stream handles GET /api/stream?streams=a,b.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.hub.Serve(userID, gatherStreams(c), h.allowed, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	var streams []string
	for _, value := range c.QueryArray("streams") {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				streams = append(streams, part)
			}
		}
	}
	if len(streams) == 0 {
		return realtime.Streams()
	}
	return streams
}
