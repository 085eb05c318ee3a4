package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const createUser = `
INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const createBoard = `
INSERT INTO boards (id, name, owner_id)
VALUES ($1, $2, $3)
RETURNING id, name, owner_id, created_at, updated_at`

type CreateBoardParams struct {
	ID      string
	Name    string
	OwnerID string
}

func (q *Queries) CreateBoard(ctx context.Context, arg CreateBoardParams) (Board, error) {
	row := q.db.QueryRow(ctx, createBoard, arg.ID, arg.Name, arg.OwnerID)
	var b Board
	err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const getBoard = `
SELECT id, name, owner_id, created_at, updated_at FROM boards WHERE id = $1`

func (q *Queries) GetBoard(ctx context.Context, id string) (Board, error) {
	row := q.db.QueryRow(ctx, getBoard, id)
	var b Board
	err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const listBoardsForUser = `
SELECT b.id, b.name, b.owner_id, b.created_at, b.updated_at
FROM boards b
JOIN board_members m ON m.board_id = b.id
WHERE m.user_id = $1
ORDER BY b.updated_at DESC`

func (q *Queries) ListBoardsForUser(ctx context.Context, userID string) ([]Board, error) {
	rows, err := q.db.Query(ctx, listBoardsForUser, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Board, error) {
		var b Board
		err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	})
}

const deleteBoard = `DELETE FROM boards WHERE id = $1`

func (q *Queries) DeleteBoard(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteBoard, id)
	return err
}

const touchBoard = `UPDATE boards SET updated_at = now() WHERE id = $1`

func (q *Queries) TouchBoard(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchBoard, id)
	return err
}

const lockBoard = `SELECT id FROM boards WHERE id = $1 FOR UPDATE`

// LockBoard takes a row lock on the board until the surrounding transaction
// ends, serializing snapshot writers.
func (q *Queries) LockBoard(ctx context.Context, id string) error {
	var locked string
	return q.db.QueryRow(ctx, lockBoard, id).Scan(&locked)
}

const addBoardMember = `
INSERT INTO board_members (board_id, user_id, role)
VALUES ($1, $2, $3)
ON CONFLICT (board_id, user_id) DO NOTHING`

type AddBoardMemberParams struct {
	BoardID string
	UserID  string
	Role    BoardRole
}

func (q *Queries) AddBoardMember(ctx context.Context, arg AddBoardMemberParams) error {
	_, err := q.db.Exec(ctx, addBoardMember, arg.BoardID, arg.UserID, string(arg.Role))
	return err
}

const getBoardMember = `
SELECT board_id, user_id, role FROM board_members WHERE board_id = $1 AND user_id = $2`

type GetBoardMemberParams struct {
	BoardID string
	UserID  string
}

func (q *Queries) GetBoardMember(ctx context.Context, arg GetBoardMemberParams) (BoardMember, error) {
	row := q.db.QueryRow(ctx, getBoardMember, arg.BoardID, arg.UserID)
	var m BoardMember
	var role string
	err := row.Scan(&m.BoardID, &m.UserID, &role)
	m.Role = BoardRole(role)
	return m, err
}

const listBoardMembers = `
SELECT m.user_id, m.role, u.display_name, u.email
FROM board_members m
JOIN users u ON u.id = m.user_id
WHERE m.board_id = $1
ORDER BY u.display_name`

func (q *Queries) ListBoardMembers(ctx context.Context, boardID string) ([]BoardMemberRow, error) {
	rows, err := q.db.Query(ctx, listBoardMembers, boardID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BoardMemberRow, error) {
		var m BoardMemberRow
		var role string
		err := row.Scan(&m.UserID, &role, &m.DisplayName, &m.Email)
		m.Role = BoardRole(role)
		return m, err
	})
}

const removeBoardMember = `DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`

type RemoveBoardMemberParams struct {
	BoardID string
	UserID  string
}

func (q *Queries) RemoveBoardMember(ctx context.Context, arg RemoveBoardMemberParams) error {
	_, err := q.db.Exec(ctx, removeBoardMember, arg.BoardID, arg.UserID)
	return err
}

const createSnapshot = `
INSERT INTO board_snapshots (id, board_id, version, document)
VALUES ($1, $2, $3, $4)
RETURNING id, board_id, version, document, created_at`

type CreateSnapshotParams struct {
	ID       string
	BoardID  string
	Version  int32
	Document []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (BoardSnapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot, arg.ID, arg.BoardID, arg.Version, arg.Document)
	var s BoardSnapshot
	err := row.Scan(&s.ID, &s.BoardID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

const getLatestSnapshot = `
SELECT id, board_id, version, document, created_at
FROM board_snapshots
WHERE board_id = $1
ORDER BY version DESC
LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, boardID string) (BoardSnapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, boardID)
	var s BoardSnapshot
	err := row.Scan(&s.ID, &s.BoardID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

const nextSnapshotVersion = `
SELECT COALESCE(MAX(version), 0) + 1 FROM board_snapshots WHERE board_id = $1`

func (q *Queries) NextSnapshotVersion(ctx context.Context, boardID string) (int32, error) {
	var v int32
	if err := q.db.QueryRow(ctx, nextSnapshotVersion, boardID).Scan(&v); err != nil {
		return 0, fmt.Errorf("next snapshot version: %w", err)
	}
	return v, nil
}
