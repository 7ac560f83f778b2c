package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"convo-chat/internal/domain/user"
	"convo-chat/internal/repository"
	convo_errors "convo-chat/pkg/errors"
	"convo-chat/pkg/logger"

	"go.uber.org/zap"
)

// BatchDeleteSpan is how many consecutive ids a batch delete covers.
const BatchDeleteSpan = 3500

var (
	ErrEmailAndNameRequired = fmt.Errorf("%w: email and name are required", convo_errors.ErrInvalidInput)
	ErrInvalidCustomID      = fmt.Errorf("%w: id must be provided and >= %d", convo_errors.ErrInvalidInput, user.MinCustomID)
	ErrNoContacts           = fmt.Errorf("%w: no contacts provided", convo_errors.ErrInvalidInput)
	ErrContactNameRequired  = fmt.Errorf("%w: every contact needs a name", convo_errors.ErrInvalidInput)
	ErrOnboardFields        = fmt.Errorf("%w: email, name and image are required", convo_errors.ErrInvalidInput)
	ErrUserIDTaken          = fmt.Errorf("%w: user id already exists", convo_errors.ErrConflict)
)

// DirectoryCache stores the name-ordered user list between mutations. Get
// reports the version it looked under; Set must be given that version so a
// list read before an Invalidate is never served after it.
type DirectoryCache interface {
	Get(ctx context.Context) ([]user.User, int64, bool, error)
	Set(ctx context.Context, version int64, users []user.User) error
	Invalidate(ctx context.Context) error
}

type UserService struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	cache    DirectoryCache
	logger   *logger.Logger
}

func NewUserService(users repository.UserRepository, messages repository.MessageRepository, cache DirectoryCache, l *logger.Logger) *UserService {
	if l == nil {
		l = logger.NewNop()
	}
	return &UserService{users: users, messages: messages, cache: cache, logger: l}
}

type NewUserInput struct {
	ID             int
	Email          string
	Name           string
	ProfilePicture string
	About          string
}

type ContactInput struct {
	Email          string
	Name           string
	PhoneNumber    string
	ProfilePicture string
	About          string
}

type OnboardInput struct {
	Email string
	Name  string
	// About is nil when the caller omitted it.
	About *string
	Image string
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, convo_errors.ErrInvalidInput
	}
	return s.users.GetUserByEmail(ctx, email)
}

// Delete removes a user's messages and then the user. The two steps are not
// atomic; messages already removed stay removed if the second step fails.
func (s *UserService) Delete(ctx context.Context, id int) error {
	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		return err
	}
	removed, err := s.messages.DeleteByParticipant(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.WithContext(ctx).Info("user deleted", zap.Int("user_id", id), zap.Int64("messages_removed", removed))
	s.invalidate(ctx)
	return nil
}

func (s *UserService) Create(ctx context.Context, in NewUserInput) (user.User, error) {
	if in.Email == "" || in.Name == "" {
		return user.User{}, ErrEmailAndNameRequired
	}
	u := user.User{
		Email:          in.Email,
		Name:           in.Name,
		ProfilePicture: orDefault(in.ProfilePicture, user.DefaultProfilePicture),
		About:          in.About,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return user.User{}, err
	}
	s.invalidate(ctx)
	return u, nil
}

// CreateWithID creates a user under a caller-chosen id of at least
// user.MinCustomID.
func (s *UserService) CreateWithID(ctx context.Context, in NewUserInput) (user.User, error) {
	if in.ID < user.MinCustomID {
		return user.User{}, ErrInvalidCustomID
	}
	if in.Email == "" || in.Name == "" {
		return user.User{}, ErrEmailAndNameRequired
	}

	_, err := s.users.GetUserByID(ctx, in.ID)
	switch {
	case err == nil:
		return user.User{}, ErrUserIDTaken
	case !errors.Is(err, convo_errors.ErrNotFound):
		return user.User{}, err
	}

	u := user.User{
		ID:             in.ID,
		Email:          in.Email,
		Name:           in.Name,
		ProfilePicture: orDefault(in.ProfilePicture, user.DefaultProfilePicture),
		About:          in.About,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return user.User{}, err
	}
	s.invalidate(ctx)
	return u, nil
}

// CreateBatch assigns ids startingID, startingID+1, ... to contacts in order
// and inserts them, skipping any id or email that already exists. A contact
// without a name rejects the whole batch. It returns how many rows were
// written.
func (s *UserService) CreateBatch(ctx context.Context, startingID int, contacts []ContactInput) (int64, error) {
	if len(contacts) == 0 {
		return 0, ErrNoContacts
	}
	for _, c := range contacts {
		if strings.TrimSpace(c.Name) == "" {
			return 0, ErrContactNameRequired
		}
	}

	rows := make([]user.User, 0, len(contacts))
	for i, c := range contacts {
		id := startingID + i
		u := user.User{
			ID:             id,
			Email:          orDefault(c.Email, fmt.Sprintf("user%d@example.com", id)),
			Name:           c.Name,
			ProfilePicture: orDefault(c.ProfilePicture, user.DefaultBatchProfilePicture),
			About:          c.About,
		}
		if c.PhoneNumber != "" {
			phone := c.PhoneNumber
			u.PhoneNumber = &phone
		}
		rows = append(rows, u)
	}

	created, err := s.users.CreateMany(ctx, rows)
	if err != nil {
		return 0, err
	}
	s.logger.WithContext(ctx).Info("batch users created",
		zap.Int("starting_id", startingID),
		zap.Int("submitted", len(rows)),
		zap.Int64("created", created))
	s.invalidate(ctx)
	return created, nil
}

// DeleteBatch removes messages and then users for ids in
// [startID, startID+BatchDeleteSpan). It returns the number of users removed.
func (s *UserService) DeleteBatch(ctx context.Context, startID int) (int64, error) {
	endID := startID + BatchDeleteSpan
	if _, err := s.messages.DeleteByParticipantRange(ctx, startID, endID); err != nil {
		return 0, err
	}
	deleted, err := s.users.DeleteUserRange(ctx, startID, endID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return deleted, nil
}

func (s *UserService) Onboard(ctx context.Context, in OnboardInput) (user.User, error) {
	if in.Email == "" || in.Name == "" || in.Image == "" {
		return user.User{}, ErrOnboardFields
	}
	about := user.DefaultOnboardAbout
	if in.About != nil {
		about = *in.About
	}
	u := user.User{
		Email:          in.Email,
		Name:           in.Name,
		About:          about,
		ProfilePicture: in.Image,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return user.User{}, err
	}
	s.invalidate(ctx)
	return u, nil
}

// ListGrouped returns every user ordered by name and grouped under the
// upper-cased first letter of the name.
func (s *UserService) ListGrouped(ctx context.Context) (map[string][]user.User, error) {
	users, err := s.listByName(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByInitial(users), nil
}

func (s *UserService) listByName(ctx context.Context) ([]user.User, error) {
	log := s.logger.WithContext(ctx)
	cacheable := false
	var version int64
	if s.cache != nil {
		cached, v, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			log.Warn("directory cache read failed", zap.Error(err))
		case ok:
			return cached, nil
		default:
			cacheable = true
			version = v
		}
	}

	users, err := s.users.GetAllUsersByName(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, version, users); err != nil {
			log.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return users, nil
}

// GroupByInitial buckets users by the upper-cased first rune of their name,
// keeping the input order inside each bucket.
func GroupByInitial(users []user.User) map[string][]user.User {
	groups := make(map[string][]user.User)
	for _, u := range users {
		key := ""
		if r, _ := utf8.DecodeRuneInString(u.Name); r != utf8.RuneError {
			key = strings.ToUpper(string(r))
		}
		groups[key] = append(groups[key], u)
	}
	return groups
}

func (s *UserService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithContext(ctx).Warn("directory cache invalidation failed", zap.Error(err))
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
