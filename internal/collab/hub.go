package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/job"
)

// Applier runs a transform against the named document. It is expected to
// publish the outcome itself through PublishResult.
type Applier func(ctx context.Context, documentID, requestID string, req engine.Request) (*engine.Result, error)

type Room struct {
	documentID string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
	seq        int64
}

func NewRoom(documentID string) *Room {
	return &Room{
		documentID: documentID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
	}
}

// Hub fans document events out to the watchers of each document.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Client
	unregister chan *Client
	apply      Applier
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// AcceptTransforms lets clients submit transforms over the socket. Call it
// before Run.
func (h *Hub) AcceptTransforms(apply Applier) {
	h.apply = apply
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Watchers returns the number of clients connected to a document.
func (h *Hub) Watchers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[documentID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		room = NewRoom(client.DocumentID)
		h.rooms[client.DocumentID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.DocumentID, &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
	h.broadcastToRoom(client.DocumentID, &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}, "")

	slog.Info("client left", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeTransformSubmit:
		h.handleTransformSubmit(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.SendError(errors.ErrCodeInvalidInput, "unknown message type "+msg.Type)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}
	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.DocumentID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.presence.Update(sender.UserID, &presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.DocumentID, &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}, sender.ClientID)
}

func (h *Hub) handleTransformSubmit(ctx context.Context, sender *Client, msg *Message) {
	var submit TransformSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.SendError(errors.ErrCodeInvalidInput, "invalid transform payload")
		return
	}
	if h.apply == nil {
		sender.SendError(errors.ErrCodeInternal, "transforms are not accepted on this channel")
		return
	}

	j, err := job.Parse(submit.Job, job.FormatJSON)
	if err != nil {
		sender.SendError(errors.GetCode(err), errors.UserMessage(err))
		return
	}
	req, err := j.Request()
	if err != nil {
		sender.SendError(errors.GetCode(err), errors.UserMessage(err))
		return
	}

	res, err := h.apply(ctx, sender.DocumentID, submit.RequestID, req)
	if res == nil && err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeInternal
		}
		sender.SendError(code, errors.UserMessage(err))
	}
}

// PublishDirty forwards a document's dirty event to its watchers.
func (h *Hub) PublishDirty(ev document.DirtyEvent) {
	h.mu.RLock()
	room, ok := h.rooms[ev.DocumentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := DirtyPayload{Version: ev.Version, Scope: ev.Scope, IDs: ev.IDs}
	selected := room.presence.Selected()
	for _, id := range ev.IDs {
		if selected[id] {
			payload.Selected = append(payload.Selected, id)
		}
	}
	data, _ := json.Marshal(payload)
	h.broadcastToRoom(ev.DocumentID, &Message{Type: TypeDocDirty, Payload: data}, "")
}

// PublishResult tells every watcher how a transaction ended.
func (h *Hub) PublishResult(documentID, requestID string, res *engine.Result) {
	typ := TypeTransformCommitted
	if !res.Committed() {
		typ = TypeTransformRolledBack
	}
	data, err := json.Marshal(TransformOutcomePayload{RequestID: requestID, Result: res})
	if err != nil {
		slog.Error("marshal transform result", "error", err)
		return
	}
	h.broadcastToRoom(documentID, &Message{Type: typ, Payload: data}, "")
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.Lock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	room.seq++
	msg.Seq = room.seq
	msg.DocumentID = documentID

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
