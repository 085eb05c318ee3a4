package board

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/freeflow/freeflow/backend-go/internal/auth"
	"github.com/freeflow/freeflow/backend-go/internal/db"
	"github.com/freeflow/freeflow/backend-go/internal/document"
	"github.com/freeflow/freeflow/backend-go/internal/element"
)

type memStore struct {
	mu        sync.Mutex
	boards    map[string]db.Board
	members   map[string]map[string]db.BoardRole
	users     map[string]db.User
	snapshots map[string][]db.BoardSnapshot
}

func newMemStore() *memStore {
	return &memStore{
		boards:    map[string]db.Board{},
		members:   map[string]map[string]db.BoardRole{},
		users:     map[string]db.User{},
		snapshots: map[string][]db.BoardSnapshot{},
	}
}

func (m *memStore) CreateBoard(_ context.Context, arg db.CreateBoardParams) (db.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := db.Board{ID: arg.ID, Name: arg.Name, OwnerID: arg.OwnerID}
	m.boards[b.ID] = b
	return b, nil
}

func (m *memStore) GetBoard(_ context.Context, id string) (db.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return db.Board{}, pgx.ErrNoRows
	}
	return b, nil
}

func (m *memStore) ListBoardsForUser(_ context.Context, userID string) ([]db.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Board
	for id, members := range m.members {
		if _, ok := members[userID]; ok {
			out = append(out, m.boards[id])
		}
	}
	return out, nil
}

func (m *memStore) DeleteBoard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, id)
	delete(m.members, id)
	delete(m.snapshots, id)
	return nil
}

func (m *memStore) TouchBoard(context.Context, string) error { return nil }

func (m *memStore) LockBoard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return pgx.ErrNoRows
	}
	return nil
}

func (m *memStore) AddBoardMember(_ context.Context, arg db.AddBoardMemberParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[arg.BoardID] == nil {
		m.members[arg.BoardID] = map[string]db.BoardRole{}
	}
	m.members[arg.BoardID][arg.UserID] = arg.Role
	return nil
}

func (m *memStore) GetBoardMember(_ context.Context, arg db.GetBoardMemberParams) (db.BoardMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.members[arg.BoardID][arg.UserID]
	if !ok {
		return db.BoardMember{}, pgx.ErrNoRows
	}
	return db.BoardMember{BoardID: arg.BoardID, UserID: arg.UserID, Role: role}, nil
}

func (m *memStore) ListBoardMembers(_ context.Context, boardID string) ([]db.BoardMemberRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.BoardMemberRow
	for userID, role := range m.members[boardID] {
		u := m.users[userID]
		out = append(out, db.BoardMemberRow{UserID: userID, Role: role, DisplayName: u.DisplayName, Email: u.Email})
	}
	return out, nil
}

func (m *memStore) RemoveBoardMember(_ context.Context, arg db.RemoveBoardMemberParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[arg.BoardID], arg.UserID)
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memStore) CreateSnapshot(_ context.Context, arg db.CreateSnapshotParams) (db.BoardSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := db.BoardSnapshot{ID: arg.ID, BoardID: arg.BoardID, Version: arg.Version, Document: arg.Document}
	m.snapshots[arg.BoardID] = append(m.snapshots[arg.BoardID], s)
	return s, nil
}

func (m *memStore) GetLatestSnapshot(_ context.Context, boardID string) (db.BoardSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := m.snapshots[boardID]
	if len(snaps) == 0 {
		return db.BoardSnapshot{}, pgx.ErrNoRows
	}
	return snaps[len(snaps)-1], nil
}

func (m *memStore) NextSnapshotVersion(_ context.Context, boardID string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int32(len(m.snapshots[boardID]) + 1), nil
}

func (m *memStore) snapshotCount(boardID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots[boardID])
}

// newTestServer routes board endpoints with the caller chosen by the
// X-Test-User header.
func newTestServer(svc *Service) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), auth.UserIDKey, r.Header.Get("X-Test-User"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewHandler(svc).Routes(api)
	return r
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateSeedsEmptySnapshot(t *testing.T) {
	st := newMemStore()
	svc := NewService(st)
	ctx := context.Background()

	b, err := svc.Create(ctx, "Retro", "user_a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(b.ID, "board_") {
		t.Errorf("board id %q lacks board_ prefix", b.ID)
	}

	elements, err := svc.LoadElements(ctx, b.ID)
	if err != nil {
		t.Fatalf("LoadElements: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("new board has %d elements", len(elements))
	}

	if _, err := svc.Get(ctx, b.ID, "user_b"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Get by stranger = %v, want ErrNotMember", err)
	}
}

func TestImportDocument(t *testing.T) {
	st := newMemStore()
	svc := NewService(st)
	b, _ := svc.Create(context.Background(), "Retro", "user_a")
	h := newTestServer(svc)
	path := "/api/boards/" + b.ID + "/document"

	valid, err := document.Encode(document.NewSampleElements())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		user      string
		body      string
		status    int
		snapshots int
	}{
		{"not json", "user_a", "{", http.StatusBadRequest, 1},
		{"bad element", "user_a", `[{"id":"x","type":"hexagon"}]`, http.StatusBadRequest, 1},
		{"stranger", "user_b", string(valid), http.StatusForbidden, 1},
		{"valid", "user_a", string(valid), http.StatusOK, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, path, tt.user, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := st.snapshotCount(b.ID); got != tt.snapshots {
				t.Errorf("snapshots = %d, want %d", got, tt.snapshots)
			}
		})
	}

	rec := do(t, h, http.MethodGet, "/api/boards/"+b.ID+"/snapshots/latest", "user_a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("latest snapshot status = %d", rec.Code)
	}
	got, err := document.DecodeElements(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	want := document.NewSampleElements()
	if len(got) != len(want) {
		t.Errorf("latest snapshot has %d elements, want %d", len(got), len(want))
	}
}

func TestBoardLifecycleOverHTTP(t *testing.T) {
	st := newMemStore()
	st.users["user_b"] = db.User{ID: "user_b", Email: "b@example.com", DisplayName: "Bea"}
	h := newTestServer(NewService(st))

	rec := do(t, h, http.MethodPost, "/api/boards", "user_a", `{"name":"Plan"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var b Board
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	base := "/api/boards/" + b.ID

	steps := []struct {
		name, method, path, user, body string
		status                         int
	}{
		{"missing name", http.MethodPost, "/api/boards", "user_a", `{}`, http.StatusBadRequest},
		{"get as owner", http.MethodGet, base, "user_a", "", http.StatusOK},
		{"get as stranger", http.MethodGet, base, "user_b", "", http.StatusForbidden},
		{"invite unknown", http.MethodPost, base + "/invite", "user_a", `{"email":"z@example.com"}`, http.StatusNotFound},
		{"invite by non-owner", http.MethodPost, base + "/invite", "user_b", `{"email":"b@example.com"}`, http.StatusForbidden},
		{"invite", http.MethodPost, base + "/invite", "user_a", `{"email":"b@example.com"}`, http.StatusCreated},
		{"get as member", http.MethodGet, base, "user_b", "", http.StatusOK},
		{"members", http.MethodGet, base + "/members", "user_b", "", http.StatusOK},
		{"remove owner", http.MethodDelete, base + "/members/user_a", "user_a", "", http.StatusBadRequest},
		{"export pdf", http.MethodGet, base + "/export.pdf", "user_b", "", http.StatusOK},
		{"delete by member", http.MethodDelete, base, "user_b", "", http.StatusForbidden},
		{"delete", http.MethodDelete, base, "user_a", "", http.StatusNoContent},
		{"get deleted", http.MethodGet, base, "user_a", "", http.StatusForbidden},
		{"delete missing", http.MethodDelete, base, "user_a", "", http.StatusNotFound},
	}
	for _, s := range steps {
		rec := do(t, h, s.method, s.path, s.user, s.body)
		if rec.Code != s.status {
			t.Fatalf("%s: status = %d, want %d (%s)", s.name, rec.Code, s.status, rec.Body.String())
		}
	}
}

func TestSaveElementsVersions(t *testing.T) {
	st := newMemStore()
	svc := NewService(st)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "Versions", "user_a")

	e := element.New(element.TypeEllipse, 0, 0, 10, 10, element.Patch{})
	v, err := svc.SaveElements(ctx, b.ID, []element.Element{e})
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}

	got, err := svc.LoadElements(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !element.Equal(got[0], e) {
		t.Errorf("LoadElements = %+v", got)
	}

	empty, err := svc.LoadElements(ctx, "board_unknown")
	if err != nil || len(empty) != 0 {
		t.Errorf("LoadElements(unknown) = %v, %v", empty, err)
	}
}

func TestSaveElementsRunsInTransaction(t *testing.T) {
	st := newMemStore()
	var txs int
	svc := NewService(st).WithTx(func(ctx context.Context, fn func(Store) error) error {
		txs++
		return fn(st)
	})
	ctx := context.Background()

	b, err := svc.Create(ctx, "Tx", "user_a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveElements(ctx, b.ID, nil); err != nil {
		t.Fatal(err)
	}
	if txs != 2 {
		t.Errorf("%d transactions, want one per snapshot write", txs)
	}

	if _, err := svc.SaveElements(ctx, "board_unknown", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("save to missing board err = %v, want ErrNotFound", err)
	}
	if n := st.snapshotCount("board_unknown"); n != 0 {
		t.Errorf("%d snapshots written for a missing board", n)
	}

	failing := NewService(st).WithTx(func(context.Context, func(Store) error) error {
		return errors.New("begin tx: connection reset")
	})
	if _, err := failing.SaveElements(ctx, b.ID, nil); err == nil {
		t.Error("SaveElements ignored a failed transaction")
	}
}

func TestImportGoesThroughReplacer(t *testing.T) {
	st := newMemStore()
	svc := NewService(st)
	ctx := context.Background()
	b, _ := svc.Create(ctx, "Live", "user_a")

	var (
		replacedBoard string
		replaced      []element.Element
	)
	svc.WithReplacer(func(ctx context.Context, boardID string, elements []element.Element, persist func(context.Context) error) error {
		if err := persist(ctx); err != nil {
			return err
		}
		replacedBoard, replaced = boardID, elements
		return nil
	})

	data, err := document.Encode(document.NewSampleElements())
	if err != nil {
		t.Fatal(err)
	}
	v, err := svc.ImportDocument(ctx, b.ID, "user_a", data)
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if replacedBoard != b.ID || len(replaced) != len(document.NewSampleElements()) {
		t.Errorf("replacer saw board %q with %d elements", replacedBoard, len(replaced))
	}

	svc.WithReplacer(func(context.Context, string, []element.Element, func(context.Context) error) error {
		return errors.New("hub stopped")
	})
	if _, err := svc.ImportDocument(ctx, b.ID, "user_a", data); err == nil {
		t.Error("import succeeded although the replacer failed")
	}
	if n := st.snapshotCount(b.ID); n != 2 {
		t.Errorf("snapshots = %d, want 2", n)
	}
}
