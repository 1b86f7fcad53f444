package session

import "time"

// Session: собранный PDF, ждущий скачивания.
type Session struct {
	Handle    string
	Data      []byte
	Filename  string
	CreatedAt time.Time
	Consumed  bool
}

func (s *Session) Size() int {
	return len(s.Data)
}

// Store owns every Session. Get, Take and Delete report SessionNotFound for
// absent, expired and already consumed handles alike.
type Store interface {
	Put(data []byte, filename string) (string, error)
	Get(handle string) (Session, error)
	// Take returns the session and removes it in the same critical section.
	Take(handle string) (Session, error)
	Delete(handle string) error
	Sweep() int
	Len() int
}
