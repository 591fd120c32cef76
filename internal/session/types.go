package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrBusy is returned when a user already has a message being processed.
var ErrBusy = errors.New("session busy")

// ThreadCreator creates remote conversation threads.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

type Session struct {
	threadID string
	// gen changes on every Reset and Forget so a first-contact create that
	// finishes late cannot overwrite the newer mapping.
	gen        uint64
	processing sync.Mutex
}

type Store struct {
	client   ThreadCreator
	mu       sync.RWMutex
	sessions map[string]*Session
	group    singleflight.Group
}
