// Package memory keeps users, messages and bot replies in process memory.
// It backs local runs with STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"convo-chat/internal/domain/botreply"
	"convo-chat/internal/domain/message"
	"convo-chat/internal/domain/user"
	"convo-chat/internal/repository"
	convo_errors "convo-chat/pkg/errors"
)

type Store struct {
	mu sync.Mutex

	users      map[int]user.User
	messages   []message.Message
	replies    []botreply.BotReply
	nextUserID int
	nextMsgID  int

	// FailInsert, when set, is consulted before every message batch insert.
	// Returning an error rejects the whole batch.
	FailInsert func(batch []message.Message) error
}

func New() *Store {
	return &Store{
		users:      make(map[int]user.User),
		nextUserID: 1,
		nextMsgID:  1,
	}
}

func (s *Store) Users() repository.UserRepository          { return userRepo{s} }
func (s *Store) Messages() repository.MessageRepository    { return messageRepo{s} }
func (s *Store) BotReplies() repository.BotReplyRepository { return botReplyRepo{s} }

// AllMessages returns a copy of every stored message in insertion order.
func (s *Store) AllMessages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) emailTaken(email string) bool {
	for _, u := range s.users {
		if u.Email == email {
			return true
		}
	}
	return false
}

// insertUser expects s.mu to be held.
func (s *Store) insertUser(u *user.User) error {
	if u.ID == 0 {
		for {
			if _, ok := s.users[s.nextUserID]; !ok {
				break
			}
			s.nextUserID++
		}
		u.ID = s.nextUserID
		s.nextUserID++
	} else if _, ok := s.users[u.ID]; ok {
		return convo_errors.ErrAlreadyExists
	}
	if s.emailTaken(u.Email) {
		return convo_errors.ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = *u
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertUser(u)
}

func (r userRepo) CreateMany(_ context.Context, users []user.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range users {
		if err := r.s.insertUser(&users[i]); err == nil {
			n++
		}
	}
	return n, nil
}

func (r userRepo) GetUserByID(_ context.Context, id int) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, convo_errors.ErrNotFound
	}
	return u, nil
}

func (r userRepo) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, convo_errors.ErrNotFound
}

func (r userRepo) GetAllUsersByName(_ context.Context) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r userRepo) GetAllUserIDs(_ context.Context) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r userRepo) DeleteUser(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return convo_errors.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r userRepo) DeleteUserRange(_ context.Context, startID, endID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id := range r.s.users {
		if id >= startID && id < endID {
			delete(r.s.users, id)
			n++
		}
	}
	return n, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) CreateMany(_ context.Context, msgs []message.Message) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailInsert != nil {
		if err := r.s.FailInsert(msgs); err != nil {
			return 0, err
		}
	}
	now := time.Now()
	for _, m := range msgs {
		m.ID = r.s.nextMsgID
		r.s.nextMsgID++
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		r.s.messages = append(r.s.messages, m)
	}
	return int64(len(msgs)), nil
}

func (r messageRepo) DeleteByParticipant(_ context.Context, userID int) (int64, error) {
	return r.deleteWhere(func(m message.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}), nil
}

func (r messageRepo) DeleteByParticipantRange(_ context.Context, startID, endID int) (int64, error) {
	in := func(id int) bool { return id >= startID && id < endID }
	return r.deleteWhere(func(m message.Message) bool {
		return in(m.SenderID) || in(m.ReceiverID)
	}), nil
}

func (r messageRepo) deleteWhere(match func(message.Message) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.messages[:0]
	var n int64
	for _, m := range r.s.messages {
		if match(m) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.s.messages = kept
	return n
}

type botReplyRepo struct{ s *Store }

func (r botReplyRepo) GetReplies(_ context.Context, limit int) ([]botreply.BotReply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]botreply.BotReply, len(r.s.replies))
	copy(out, r.s.replies)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r botReplyRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.replies)), nil
}

func (r botReplyRepo) CreateMany(_ context.Context, replies []botreply.BotReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, br := range replies {
		if br.ID == 0 {
			br.ID = len(r.s.replies) + 1
		}
		r.s.replies = append(r.s.replies, br)
	}
	return nil
}
