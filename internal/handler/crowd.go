package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"AlsitoQC/pkg/errors"
	"AlsitoQC/pkg/websocket"
)

// voteMessage is one crowd confirmation from a nearby user.
type voteMessage struct {
	Source    string `json:"source"`
	Confirmed bool   `json:"confirmed"`
}

type voteReply struct {
	Verified bool   `json:"verified"`
	State    string `json:"state"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

// handleCrowd accepts crowd votes over a websocket until the report is
// verified or the client leaves.
func (h *Handlers) handleCrowd(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	log := h.logger.With(zap.String("flow", id))
	err := websocket.Serve(c.Writer, c.Request, h.deps.WebSocket, log, func(msg []byte) (interface{}, error) {
		var vote voteMessage
		if err := json.Unmarshal(msg, &vote); err != nil {
			return voteReply{Error: "invalid vote"}, nil
		}
		vote.Source = strings.TrimSpace(vote.Source)
		if vote.Source == "" {
			return voteReply{Error: "source is required"}, nil
		}
		verified, err := wf.Vote(vote.Source, vote.Confirmed)
		view := wf.Snapshot()
		reply := voteReply{Verified: verified, State: view.State.String(), Count: view.Votes}
		if err != nil {
			reply.Error = errors.GetMessage(err)
		}
		return reply, nil
	})
	if err != nil {
		log.Debug("crowd feed not opened", zap.Error(err))
	}
}

// handleEvents streams route changes of one flow.
func (h *Handlers) handleEvents(c *gin.Context) {
	id, _, ok := h.lookup(c)
	if !ok {
		return
	}
	h.events.Serve(c, uuid.NewString(), id)
}
