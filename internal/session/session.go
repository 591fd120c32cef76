package session

import (
	"context"
	"fmt"

	"github.com/bowerhall/faqdesk/internal/logger"
)

func NewStore(client ThreadCreator) *Store {
	return &Store{client: client, sessions: make(map[string]*Session)}
}

// TryAcquire attempts to acquire the processing lock for userID.
// Returns true if acquired, false if already processing.
func (s *Store) TryAcquire(userID string) bool {
	return s.get(userID).processing.TryLock()
}

// Release releases the processing lock for userID.
func (s *Store) Release(userID string) {
	s.get(userID).processing.Unlock()
}

// GetOrCreateThread returns the thread mapped to userID, creating one on
// first contact. Concurrent first calls for the same user share one remote
// thread. On failure no mapping is recorded.
//
// The shared create is detached from any single caller's ctx; each caller
// stops waiting when its own ctx is done.
func (s *Store) GetOrCreateThread(ctx context.Context, userID string) (string, error) {
	if threadID, ok := s.Lookup(userID); ok {
		return threadID, nil
	}

	createCtx := context.WithoutCancel(ctx)

	ch := s.group.DoChan(userID, func() (any, error) {
		if threadID, ok := s.Lookup(userID); ok {
			return threadID, nil
		}

		gen := s.generation(userID)

		threadID, err := s.client.CreateThread(createCtx)
		if err != nil {
			return "", fmt.Errorf("create thread for %s: %w", userID, err)
		}

		current, stored := s.setIfUnchanged(userID, gen, threadID)
		if !stored {
			logger.Debug("discarding thread superseded by reset", "user", userID, "thread", threadID, "current", current)
			return current, nil
		}

		logger.Info("thread created", "user", userID, "thread", threadID)
		return threadID, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Reset replaces the user's thread with a freshly created one. The previous
// mapping survives if creation fails.
func (s *Store) Reset(ctx context.Context, userID string) (string, error) {
	threadID, err := s.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("reset thread for %s: %w", userID, err)
	}

	old, _ := s.Lookup(userID)
	s.set(userID, threadID)
	logger.Info("thread reset", "user", userID, "thread", threadID, "previous", old)

	return threadID, nil
}

// Forget drops the user's mapping without creating a new thread. The next
// message starts a new conversation.
func (s *Store) Forget(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}

	sess.gen++
	if sess.threadID == "" {
		return false
	}

	sess.threadID = ""
	return true
}

func (s *Store) Lookup(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.threadID == "" {
		return "", false
	}

	return sess.threadID, true
}

// Len returns the number of users with an active thread.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		if sess.threadID != "" {
			n++
		}
	}

	return n
}

func (s *Store) set(userID, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}

	sess.threadID = threadID
	sess.gen++
}

func (s *Store) generation(userID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.gen
	}
	return 0
}

// setIfUnchanged stores threadID only if no Reset or Forget happened since
// gen was read. Otherwise it returns the mapping that replaced it. A Forget
// leaves no mapping, in which case threadID is stored after all.
func (s *Store) setIfUnchanged(userID string, gen uint64, threadID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}

	if sess.gen != gen && sess.threadID != "" {
		return sess.threadID, false
	}

	sess.threadID = threadID
	sess.gen++
	return threadID, true
}

// get returns the session entry for userID, creating an empty one so the
// processing lock exists before any thread does.
func (s *Store) get(userID string) *Session {
	s.mu.RLock()

	sess, ok := s.sessions[userID]
	s.mu.RUnlock()

	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok = s.sessions[userID]; ok {
		return sess
	}

	sess = &Session{}
	s.sessions[userID] = sess

	return sess
}
