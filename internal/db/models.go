package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type BoardRole string

const (
	BoardRoleOwner  BoardRole = "owner"
	BoardRoleEditor BoardRole = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Board struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type BoardMember struct {
	BoardID string
	UserID  string
	Role    BoardRole
}

type BoardMemberRow struct {
	UserID      string
	Role        BoardRole
	DisplayName string
	Email       string
}

type BoardSnapshot struct {
	ID        string
	BoardID   string
	Version   int32
	Document  []byte
	CreatedAt pgtype.Timestamptz
}
