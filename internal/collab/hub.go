package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/freeflow/freeflow/backend-go/internal/element"
)

const storageTimeout = 10 * time.Second

// Loader fetches the stored elements of a board when its room opens.
type Loader func(ctx context.Context, boardID string) ([]element.Element, error)

// Saver persists a board's elements.
type Saver func(ctx context.Context, boardID string, elements []element.Element) error

type Room struct {
	boardID  string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	doc      *DocumentState
}

func NewRoom(boardID string, elements []element.Element) *Room {
	return &Room{
		boardID:  boardID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		doc:      NewDocumentState(elements),
	}
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room // boardID -> room

	load     Loader
	save     Saver
	autosave time.Duration

	register   chan *Client
	unregister chan *Client
	replace    chan replaceRequest
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub that loads rooms with load and writes dirty rooms
// with save every autosave interval, when the last client leaves, and on
// Stop.
func NewHub(load Loader, save Saver, autosave time.Duration) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		load:       load,
		save:       save,
		autosave:   autosave,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replace:    make(chan replaceRequest),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.autosave > 0 {
		ticker := time.NewTicker(h.autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.replace:
			req.done <- h.replaceBoard(req)
		case <-tick:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			return
		}
	}
}

// Stop ends Run after saving every dirty room.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

type replaceRequest struct {
	ctx      context.Context
	boardID  string
	elements []element.Element
	persist  func(context.Context) error
	done     chan error
}

// Replace runs persist and then swaps the document of the board's open room,
// if any, for elements, resyncing its clients. Both run on the hub goroutine,
// so no room load or save of the board interleaves with them. Once the hub
// has stopped, only persist runs.
func (h *Hub) Replace(ctx context.Context, boardID string, elements []element.Element, persist func(context.Context) error) error {
	req := replaceRequest{
		ctx:      ctx,
		boardID:  boardID,
		elements: elements,
		persist:  persist,
		done:     make(chan error, 1),
	}

	select {
	case h.replace <- req:
		return <-req.done
	case <-h.stop:
		return persist(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) replaceBoard(req replaceRequest) error {
	if err := req.persist(req.ctx); err != nil {
		return err
	}

	room, ok := h.room(req.boardID)
	if !ok {
		return nil
	}

	seq := room.doc.Replace(req.elements)
	st := room.doc.Store()
	room.presence.PruneSelections(func(id string) bool {
		_, ok := st.Element(id)
		return ok
	})

	resync := newMessage(TypeDocSync, room.doc.SyncPayload())
	resync.Seq = seq
	h.broadcastToRoom(req.boardID, resync, "")

	slog.Info("board replaced in live room", "board", req.boardID, "seq", seq)
	return nil
}

func (h *Hub) room(boardID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[boardID]
	return room, ok
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.room(client.BoardID)
	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		elements, err := h.load(ctx, client.BoardID)
		cancel()
		if err != nil {
			slog.Error("load board", "error", err, "board", client.BoardID)
			client.SendError("could not load board")
			if client.conn != nil {
				client.conn.Close(websocket.StatusInternalError, "could not load board")
			}
			return
		}

		room = NewRoom(client.BoardID, elements)
		h.mu.Lock()
		h.rooms[client.BoardID] = room
		h.mu.Unlock()
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}))
	client.Send(newMessage(TypeDocSync, room.doc.SyncPayload()))
	client.Send(room.presence.StateMessage())

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.BoardID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "board", client.BoardID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.BoardID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.BoardID)
	}
	h.mu.Unlock()

	if empty {
		h.saveRoom(room)
	} else {
		leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{
			UserID:   client.UserID,
			ClientID: client.ClientID,
		})
		leaveMsg.UserID = client.UserID
		h.broadcastToRoom(client.BoardID, leaveMsg, "")
	}

	slog.Info("client left", "user", client.UserID, "board", client.BoardID)
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(r)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if !room.doc.IsDirty() {
		return
	}

	elements, seq := room.doc.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := h.save(ctx, room.boardID, elements); err != nil {
		slog.Error("save board", "error", err, "board", room.boardID)
		return
	}
	room.doc.MarkSaved(seq)
	slog.Debug("board saved", "board", room.boardID, "seq", seq)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.SendError("unknown message type: " + msg.Type)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.UserID = sender.UserID
	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.BoardID)
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.BoardID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Reason: "invalid payload"}))
		return
	}

	room, ok := h.room(sender.BoardID)
	if !ok {
		return
	}

	op := stamp(submit.Operation)
	seq, err := room.doc.ApplyOperation(op)
	if err != nil {
		slog.Warn("operation rejected", "error", err, "op", op.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{
			OperationID: op.ID,
			Reason:      err.Error(),
		}))
		return
	}

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: op.Timestamp,
	})
	ack.Seq = seq
	sender.Send(ack)

	if op.Type == OpElementsDelete || op.Type == OpCanvasClear || op.ResyncsClients() {
		st := room.doc.Store()
		room.presence.PruneSelections(func(id string) bool {
			_, ok := st.Element(id)
			return ok
		})
	}

	if op.ResyncsClients() {
		resync := newMessage(TypeDocSync, room.doc.SyncPayload())
		resync.Seq = seq
		h.broadcastToRoom(sender.BoardID, resync, "")
		return
	}

	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	broadcast.Seq = seq
	broadcast.UserID = sender.UserID
	h.broadcastToRoom(sender.BoardID, broadcast, sender.ClientID)
}

func (h *Hub) broadcastToRoom(boardID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[boardID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
