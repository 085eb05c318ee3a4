package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/freeflow/freeflow/backend-go/internal/db"
	"github.com/freeflow/freeflow/backend-go/internal/document"
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/typeid"
)

var (
	ErrNotFound     = errors.New("board not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotMember    = errors.New("not a board member")
	ErrUserNotFound = errors.New("user not found")
	ErrRemoveOwner  = errors.New("cannot remove board owner")
)

// Store is the subset of db.Queries the board service needs.
type Store interface {
	CreateBoard(ctx context.Context, arg db.CreateBoardParams) (db.Board, error)
	GetBoard(ctx context.Context, id string) (db.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]db.Board, error)
	DeleteBoard(ctx context.Context, id string) error
	TouchBoard(ctx context.Context, id string) error
	LockBoard(ctx context.Context, id string) error

	AddBoardMember(ctx context.Context, arg db.AddBoardMemberParams) error
	GetBoardMember(ctx context.Context, arg db.GetBoardMemberParams) (db.BoardMember, error)
	ListBoardMembers(ctx context.Context, boardID string) ([]db.BoardMemberRow, error)
	RemoveBoardMember(ctx context.Context, arg db.RemoveBoardMemberParams) error
	GetUserByEmail(ctx context.Context, email string) (db.User, error)

	CreateSnapshot(ctx context.Context, arg db.CreateSnapshotParams) (db.BoardSnapshot, error)
	GetLatestSnapshot(ctx context.Context, boardID string) (db.BoardSnapshot, error)
	NextSnapshotVersion(ctx context.Context, boardID string) (int32, error)
}

// TxFunc runs fn with a Store bound to one transaction.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// Replacer runs persist for an imported board and swaps the document of the
// board's live collaboration room, if one is open, for elements.
type Replacer func(ctx context.Context, boardID string, elements []element.Element, persist func(context.Context) error) error

type Service struct {
	queries Store
	tx      TxFunc
	replace Replacer
}

func NewService(queries Store) *Service {
	return &Service{
		queries: queries,
		tx: func(ctx context.Context, fn func(Store) error) error {
			return fn(queries)
		},
		replace: func(ctx context.Context, _ string, _ []element.Element, persist func(context.Context) error) error {
			return persist(ctx)
		},
	}
}

// WithTx makes snapshot writes run inside transactions started by tx.
func (s *Service) WithTx(tx TxFunc) *Service {
	s.tx = tx
	return s
}

// WithReplacer routes imports through r so live rooms see them.
func (s *Service) WithReplacer(r Replacer) *Service {
	s.replace = r
	return s
}

type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Create makes a board owned by ownerID and seeds it with an empty
// version 1 snapshot.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*Board, error) {
	boardID := typeid.NewBoardID()

	dbBoard, err := s.queries.CreateBoard(ctx, db.CreateBoardParams{
		ID:      boardID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	err = s.queries.AddBoardMember(ctx, db.AddBoardMemberParams{
		BoardID: boardID,
		UserID:  ownerID,
		Role:    db.BoardRoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	if _, err := s.SaveElements(ctx, boardID, []element.Element{}); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbBoardToBoard(dbBoard), nil
}

func (s *Service) Get(ctx context.Context, boardID, userID string) (*Board, error) {
	if err := s.CheckMembership(ctx, boardID, userID); err != nil {
		return nil, err
	}

	dbBoard, err := s.queries.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}

	return dbBoardToBoard(dbBoard), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Board, error) {
	dbBoards, err := s.queries.ListBoardsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	boards := make([]Board, len(dbBoards))
	for i, b := range dbBoards {
		boards[i] = *dbBoardToBoard(b)
	}

	return boards, nil
}

func (s *Service) Delete(ctx context.Context, boardID, userID string) error {
	if err := s.checkOwner(ctx, boardID, userID); err != nil {
		return err
	}
	return s.queries.DeleteBoard(ctx, boardID)
}

func (s *Service) InviteByEmail(ctx context.Context, boardID, ownerID, inviteeEmail string) error {
	if err := s.checkOwner(ctx, boardID, ownerID); err != nil {
		return err
	}

	invitee, err := s.queries.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.queries.AddBoardMember(ctx, db.AddBoardMemberParams{
		BoardID: boardID,
		UserID:  invitee.ID,
		Role:    db.BoardRoleEditor,
	})
}

func (s *Service) ListMembers(ctx context.Context, boardID, userID string) ([]Member, error) {
	if err := s.CheckMembership(ctx, boardID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.queries.ListBoardMembers(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}

	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, boardID, ownerID, targetUserID string) error {
	if err := s.checkOwner(ctx, boardID, ownerID); err != nil {
		return err
	}

	if targetUserID == ownerID {
		return ErrRemoveOwner
	}

	return s.queries.RemoveBoardMember(ctx, db.RemoveBoardMemberParams{
		BoardID: boardID,
		UserID:  targetUserID,
	})
}

// GetLatestSnapshot returns the stored board file of the newest snapshot.
func (s *Service) GetLatestSnapshot(ctx context.Context, boardID, userID string) ([]byte, error) {
	if err := s.CheckMembership(ctx, boardID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return snap.Document, nil
}

// ImportDocument validates a board file and stores it as a new snapshot.
// Invalid input wraps document.ErrInvalidDocument and stores nothing.
func (s *Service) ImportDocument(ctx context.Context, boardID, userID string, data []byte) (int32, error) {
	if err := s.CheckMembership(ctx, boardID, userID); err != nil {
		return 0, err
	}

	elements, err := document.DecodeElements(data)
	if err != nil {
		return 0, err
	}

	var version int32
	err = s.replace(ctx, boardID, elements, func(ctx context.Context) error {
		var err error
		version, err = s.SaveElements(ctx, boardID, elements)
		return err
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// LoadElements returns the elements of the newest snapshot. A board with no
// snapshot yet loads as empty.
func (s *Service) LoadElements(ctx context.Context, boardID string) ([]element.Element, error) {
	snap, err := s.queries.GetLatestSnapshot(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []element.Element{}, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	elements, err := document.DecodeElements(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return elements, nil
}

// SaveElements writes elements as the next snapshot version and returns it.
// The board row is locked for the version read and insert, so concurrent
// writers never race for the same version.
func (s *Service) SaveElements(ctx context.Context, boardID string, elements []element.Element) (int32, error) {
	data, err := document.Encode(elements)
	if err != nil {
		return 0, err
	}

	var version int32
	err = s.tx(ctx, func(q Store) error {
		if err := q.LockBoard(ctx, boardID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock board: %w", err)
		}

		v, err := q.NextSnapshotVersion(ctx, boardID)
		if err != nil {
			return err
		}

		_, err = q.CreateSnapshot(ctx, db.CreateSnapshotParams{
			ID:       typeid.NewSnapshotID(),
			BoardID:  boardID,
			Version:  v,
			Document: data,
		})
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}

		if err := q.TouchBoard(ctx, boardID); err != nil {
			return fmt.Errorf("touch board: %w", err)
		}

		version = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// CheckMembership returns ErrNotMember unless userID belongs to boardID.
func (s *Service) CheckMembership(ctx context.Context, boardID, userID string) error {
	_, err := s.queries.GetBoardMember(ctx, db.GetBoardMemberParams{
		BoardID: boardID,
		UserID:  userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) checkOwner(ctx context.Context, boardID, userID string) error {
	dbBoard, err := s.queries.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get board: %w", err)
	}

	if dbBoard.OwnerID != userID {
		return ErrForbidden
	}
	return nil
}

func dbBoardToBoard(b db.Board) *Board {
	return &Board{
		ID:        b.ID,
		Name:      b.Name,
		OwnerID:   b.OwnerID,
		CreatedAt: b.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: b.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
