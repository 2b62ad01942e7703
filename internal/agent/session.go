package agent

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MinSessionIDLength - рантайм агента отвергает более короткие идентификаторы сессии.
const MinSessionIDLength = 33

var ErrInvalidSession = errors.New("agent: invalid session id")

// Session - явное состояние диалога, которое передается в транспорт и обратно.
// Живет только в памяти процесса.
type Session struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
}

// NewSessionID генерирует идентификатор новой сессии (UUID, 36 символов).
func NewSessionID() string {
	return uuid.NewString()
}

// NewSession - пустая сессия со свежим идентификатором.
func NewSession() Session {
	return Session{ID: NewSessionID()}
}

// Validate проверяет минимальную длину идентификатора.
func (s Session) Validate() error {
	if len(s.ID) < MinSessionIDLength {
		return fmt.Errorf("%w: %d chars, need at least %d", ErrInvalidSession, len(s.ID), MinSessionIDLength)
	}
	return nil
}
