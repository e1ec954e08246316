package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Service runs booking sessions for transports such as HTTP, websocket and the terminal.
type Service interface {
	Start(ctx context.Context) (Response, error)
	Message(ctx context.Context, sessionID, text string) (Response, error)
	Reset(ctx context.Context, sessionID string) (Response, error)
	Get(ctx context.Context, sessionID string) (State, error)
}

// Response is what a transport shows after a call.
type Response struct {
	SessionID string    `json:"session_id"`
	Phase     Phase     `json:"phase"`
	Messages  []string  `json:"messages"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// Text joins the messages of one turn for display.
func (r Response) Text() string {
	return strings.Join(r.Messages, "\n\n")
}

type service struct {
	driver *Driver
	store  SessionStore
	logger *logging.Logger
	locks  *sessionLocks
	now    func() time.Time
	newID  func() string
}

// NewService returns a Service backed by driver and store.
func NewService(driver *Driver, store SessionStore, logger *logging.Logger) Service {
	if driver == nil || store == nil {
		panic("conversation: driver and store are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &service{
		driver: driver,
		store:  store,
		logger: logger,
		locks:  newSessionLocks(),
		now:    driver.now,
		newID:  uuid.NewString,
	}
}

func (s *service) Start(ctx context.Context) (Response, error) {
	id := s.newID()
	state := s.fresh(id)
	if err := s.store.Save(ctx, state); err != nil {
		s.logger.Error("conversation: failed to save new session", "session_id", id, "error", err)
		return Response{}, err
	}
	s.logger.Info("conversation: session started", "session_id", id)
	return s.respond(state, []string{welcomeMessage}), nil
}

func (s *service) Message(ctx context.Context, sessionID, text string) (Response, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Response{}, err
	}
	next, messages := s.driver.Turn(ctx, state, text)
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("conversation: failed to save session", "session_id", sessionID, "phase", next.Phase, "error", err)
		return Response{}, err
	}
	return s.respond(next, messages), nil
}

// Reset starts a new booking on an existing session.
func (s *service) Reset(ctx context.Context, sessionID string) (Response, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if _, err := s.store.Load(ctx, sessionID); err != nil {
		return Response{}, err
	}
	state := s.fresh(sessionID)
	if err := s.store.Save(ctx, state); err != nil {
		s.logger.Error("conversation: failed to reset session", "session_id", sessionID, "error", err)
		return Response{}, err
	}
	s.logger.Info("conversation: session reset", "session_id", sessionID)
	return s.respond(state, []string{welcomeMessage}), nil
}

func (s *service) Get(ctx context.Context, sessionID string) (State, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *service) fresh(id string) State {
	now := s.now()
	return NewState(id, now).record(RoleAssistant, welcomeMessage, now)
}

func (s *service) respond(state State, messages []string) Response {
	if messages == nil {
		messages = []string{}
	}
	return Response{
		SessionID: state.SessionID,
		Phase:     state.Phase,
		Messages:  messages,
		Completed: state.Completed,
		Timestamp: state.UpdatedAt,
	}
}

// sessionLocks serializes turns per session id within this process.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
