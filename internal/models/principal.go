package models

import "github.com/google/uuid"

// Principal описывает действующего пользователя операции.
// Сервисы никогда не читают "текущего пользователя" из глобального
// контекста — идентичность всегда передаётся явным параметром.
type Principal struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin сообщает, является ли принципал администратором.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsClient сообщает, является ли принципал клиентом.
func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

// IsMaster сообщает, является ли принципал мастером.
func (p Principal) IsMaster() bool {
	return p.Role == RoleMaster
}

// SystemPrincipal используется планировщиком и отложенными переходами:
// действует с правами администратора, но с нулевым идентификатором.
func SystemPrincipal() Principal {
	return Principal{ID: uuid.Nil, Role: RoleAdmin}
}
