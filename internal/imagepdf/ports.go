package imagepdf

import (
	"context"
	"mime/multipart"

	"github.com/Vovarama1992/file_changer/internal/session"
)

const OutputFilename = "converted.pdf"

// Artifact: готовый PDF до того, как он попал в хранилище (или ушёл клиенту напрямую).
type Artifact struct {
	PDF        []byte
	Filename   string
	ImageCount int
}

// Receipt describes a stored artifact to the client.
type Receipt struct {
	SessionID  string `json:"sessionId"`
	Filename   string `json:"filename"`
	Size       int    `json:"size"`
	ImageCount int    `json:"imageCount"`
}

type SessionStore interface {
	Put(data []byte, filename string) (string, error)
	Take(handle string) (session.Session, error)
	Delete(handle string) error
	Len() int
}

type Service interface {
	Build(ctx context.Context, files []*multipart.FileHeader) (*Artifact, error)
	Convert(ctx context.Context, files []*multipart.FileHeader) (*Receipt, error)
	Redeem(handle string) (session.Session, error)
	Discard(handle string) error
	ActiveSessions() int
}
