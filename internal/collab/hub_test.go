package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/freeflow/freeflow/backend-go/internal/element"
)

type memBoards struct {
	mu     sync.Mutex
	boards map[string][]element.Element
	saves  int
}

func (m *memBoards) load(_ context.Context, boardID string) ([]element.Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if boardID == "board_broken" {
		return nil, errors.New("storage down")
	}
	return element.CloneAll(m.boards[boardID]), nil
}

func (m *memBoards) save(_ context.Context, boardID string, elements []element.Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[boardID] = element.CloneAll(elements)
	m.saves++
	return nil
}

func (m *memBoards) get(boardID string) ([]element.Element, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boards[boardID], m.saves
}

func newTestHub(seed map[string][]element.Element) (*Hub, *memBoards) {
	if seed == nil {
		seed = map[string][]element.Element{}
	}
	boards := &memBoards{boards: seed}
	return NewHub(boards.load, boards.save, 0), boards
}

// drain returns every queued message without blocking.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("bad message: %v", err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func submit(t *testing.T, h *Hub, c *Client, op Operation) {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	if err != nil {
		t.Fatal(err)
	}
	h.handleMessage(c, &Message{Type: TypeOpSubmit, Payload: payload})
}

func TestJoinSendsWelcomeAndDocSync(t *testing.T) {
	seeded := newRect(0)
	h, _ := newTestHub(map[string][]element.Element{"board_a": {seeded}})

	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	h.addClient(alice)

	msgs := drain(t, alice)
	want := []string{TypeWelcome, TypeDocSync, TypePresenceState}
	if len(msgs) != len(want) {
		t.Fatalf("got %v, want %v", types(msgs), want)
	}
	for i, typ := range want {
		if msgs[i].Type != typ {
			t.Errorf("msg %d = %s, want %s", i, msgs[i].Type, typ)
		}
	}

	var doc DocSyncPayload
	if err := json.Unmarshal(msgs[1].Payload, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0].ID != seeded.ID {
		t.Errorf("doc.sync elements = %+v", doc.Elements)
	}

	bob := NewClient(h, nil, "user_b", "Bob", "board_a", "c2")
	h.addClient(bob)
	if got := types(drain(t, alice)); len(got) != 1 || got[0] != TypePresenceJoin {
		t.Errorf("alice saw %v on join, want presence.join", got)
	}
}

func TestOperationFanOut(t *testing.T) {
	h, _ := newTestHub(nil)
	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	bob := NewClient(h, nil, "user_b", "Bob", "board_a", "c2")
	h.addClient(alice)
	h.addClient(bob)
	drain(t, alice)
	drain(t, bob)

	e := newRect(0)
	submit(t, h, alice, Operation{ID: "op_1", Type: OpElementAdd, Element: &e})

	aliceMsgs := drain(t, alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Type != TypeOpAck {
		t.Fatalf("alice got %v, want op.ack", types(aliceMsgs))
	}
	var ack OperationAckPayload
	json.Unmarshal(aliceMsgs[0].Payload, &ack)
	if ack.OperationID != "op_1" || ack.ServerSeq != 1 {
		t.Errorf("ack = %+v", ack)
	}

	bobMsgs := drain(t, bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Type != TypeOpBroadcast {
		t.Fatalf("bob got %v, want op.broadcast", types(bobMsgs))
	}
	var bc OperationBroadcastPayload
	json.Unmarshal(bobMsgs[0].Payload, &bc)
	if bc.Operation.Element == nil || bc.Operation.Element.ID != e.ID || bc.UserID != "user_a" {
		t.Errorf("broadcast = %+v", bc)
	}

	// Undo resyncs everyone, sender included.
	submit(t, h, bob, Operation{Type: OpHistoryUndo})
	if got := types(drain(t, bob)); len(got) != 2 || got[0] != TypeOpAck || got[1] != TypeDocSync {
		t.Errorf("bob got %v after undo", got)
	}
	if got := types(drain(t, alice)); len(got) != 1 || got[0] != TypeDocSync {
		t.Errorf("alice got %v after undo", got)
	}

	// Rejected ops only reach the sender.
	submit(t, h, alice, Operation{ID: "op_bad", Type: OpElementsDelete, ElementIDs: []string{"el_gone"}})
	aliceMsgs = drain(t, alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Type != TypeOpNack {
		t.Fatalf("alice got %v, want op.nack", types(aliceMsgs))
	}
	if got := drain(t, bob); len(got) != 0 {
		t.Errorf("bob saw %v for a rejected op", types(got))
	}
}

func TestPresenceUpdateAndPrune(t *testing.T) {
	h, _ := newTestHub(nil)
	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	bob := NewClient(h, nil, "user_b", "Bob", "board_a", "c2")
	h.addClient(alice)
	h.addClient(bob)

	e := newRect(0)
	submit(t, h, alice, Operation{Type: OpElementAdd, Element: &e})
	drain(t, alice)
	drain(t, bob)

	payload, _ := json.Marshal(PresencePayload{
		Cursor:    &CursorPos{X: 1, Y: 2},
		Selection: []string{e.ID},
	})
	h.handleMessage(alice, &Message{Type: TypePresenceUpdate, Payload: payload})

	bobMsgs := drain(t, bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Type != TypePresenceUpdate {
		t.Fatalf("bob got %v, want presence.update", types(bobMsgs))
	}
	var p PresencePayload
	json.Unmarshal(bobMsgs[0].Payload, &p)
	if p.DisplayName != "Alice" || p.UserID != "user_a" {
		t.Errorf("presence identity = %q/%q", p.UserID, p.DisplayName)
	}

	submit(t, h, bob, Operation{Type: OpElementsDelete, ElementIDs: []string{e.ID}})
	room, _ := h.room("board_a")
	if sel := room.presence.Snapshot()["c1"].Selection; len(sel) != 0 {
		t.Errorf("alice's selection still holds %v after delete", sel)
	}
}

func TestLastLeaveSavesDirtyBoard(t *testing.T) {
	h, boards := newTestHub(nil)
	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	h.addClient(alice)

	e := newRect(0)
	submit(t, h, alice, Operation{Type: OpElementAdd, Element: &e})
	h.removeClient(alice)

	saved, saves := boards.get("board_a")
	if saves != 1 || len(saved) != 1 || saved[0].ID != e.ID {
		t.Errorf("saved %d times: %+v", saves, saved)
	}
	if _, ok := h.room("board_a"); ok {
		t.Error("empty room not removed")
	}

	// A second removal is a no-op and must not close the channel twice.
	h.removeClient(alice)
	alice.Send(newMessage(TypeError, ErrorPayload{Message: "late"}))
}

func TestCleanBoardIsNotSaved(t *testing.T) {
	h, boards := newTestHub(nil)
	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	h.addClient(alice)
	h.removeClient(alice)

	if _, saves := boards.get("board_a"); saves != 0 {
		t.Errorf("clean board saved %d times", saves)
	}
}

func TestLoadFailureSendsError(t *testing.T) {
	h, _ := newTestHub(nil)
	c := NewClient(h, nil, "user_a", "Alice", "board_broken", "c1")
	h.addClient(c)

	msgs := drain(t, c)
	if len(msgs) != 1 || msgs[0].Type != TypeError {
		t.Errorf("got %v, want a single error", types(msgs))
	}
	if _, ok := h.room("board_broken"); ok {
		t.Error("room created despite load failure")
	}
}

func TestStopSavesDirtyRooms(t *testing.T) {
	h, boards := newTestHub(nil)
	go h.Run()

	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	h.Register(alice)

	// Register returns once Run has taken the client; the room exists
	// after addClient completes, which the next hub round trip guarantees.
	h.Unregister(NewClient(h, nil, "user_x", "X", "board_none", "cx"))

	e := newRect(0)
	submit(t, h, alice, Operation{Type: OpElementAdd, Element: &e})
	h.Stop()

	if saved, saves := boards.get("board_a"); saves != 1 || len(saved) != 1 {
		t.Errorf("Stop saved %d times: %+v", saves, saved)
	}
}

func TestReplaceResyncsOpenRoom(t *testing.T) {
	h, boards := newTestHub(map[string][]element.Element{"board_a": {newRect(0)}})
	go h.Run()

	alice := NewClient(h, nil, "user_a", "Alice", "board_a", "c1")
	h.Register(alice)
	h.Unregister(NewClient(h, nil, "user_x", "X", "board_none", "cx"))

	// Unsaved edit made before the import lands.
	e := newRect(1)
	submit(t, h, alice, Operation{Type: OpElementAdd, Element: &e})
	drain(t, alice)

	imported := []element.Element{newRect(2)}
	persist := func(ctx context.Context) error {
		return boards.save(ctx, "board_a", imported)
	}
	if err := h.Replace(context.Background(), "board_a", imported, persist); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	msgs := drain(t, alice)
	if len(msgs) != 1 || msgs[0].Type != TypeDocSync {
		t.Fatalf("alice got %v, want doc.sync", types(msgs))
	}
	var doc DocSyncPayload
	if err := json.Unmarshal(msgs[0].Payload, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0].ID != imported[0].ID {
		t.Errorf("doc.sync elements = %+v", doc.Elements)
	}
	if !doc.CanUndo {
		t.Error("import should be undoable in the room")
	}

	room, _ := h.room("board_a")
	if room.doc.IsDirty() {
		t.Error("room still dirty after a persisted import")
	}

	// The stale pre-import board must never be written over the import.
	h.Stop()
	saved, saves := boards.get("board_a")
	if saves != 1 || len(saved) != 1 || saved[0].ID != imported[0].ID {
		t.Errorf("saved %d times: %+v", saves, saved)
	}
}

func TestReplaceWithoutRoomOnlyPersists(t *testing.T) {
	h, boards := newTestHub(nil)
	go h.Run()

	imported := []element.Element{newRect(0)}
	persist := func(ctx context.Context) error {
		return boards.save(ctx, "board_b", imported)
	}
	if err := h.Replace(context.Background(), "board_b", imported, persist); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.room("board_b"); ok {
		t.Error("Replace opened a room")
	}

	failed := errors.New("disk full")
	err := h.Replace(context.Background(), "board_b", imported, func(context.Context) error { return failed })
	if !errors.Is(err, failed) {
		t.Errorf("err = %v, want persist error", err)
	}

	h.Stop()
	if err := h.Replace(context.Background(), "board_b", imported, persist); err != nil {
		t.Errorf("Replace after Stop: %v", err)
	}
	if _, saves := boards.get("board_b"); saves != 2 {
		t.Errorf("saves = %d, want 2", saves)
	}
}
