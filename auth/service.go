package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"notejournal/models"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	dummyOnce sync.Once
	dummyHash string
)

// compareDummy spends a bcrypt comparison so unknown usernames take as long
// as wrong passwords.
func compareDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	CheckPassword(dummyHash, password)
}

type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (models.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type Service struct {
	users          UserStore
	passwordPolicy bool
}

// NewService builds the account service; passwordPolicy enables the
// strength rules in PasswordProblems.
func NewService(users UserStore, passwordPolicy bool) *Service {
	return &Service{users: users, passwordPolicy: passwordPolicy}
}

func (s *Service) validate(ctx context.Context, in *RegisterInput) error {
	var v models.ValidationError

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Username == "":
		v.Add("username", "username is required")
	case utf8.RuneCountInString(in.Username) > models.MaxUsernameLength:
		v.Add("username", fmt.Sprintf("username must be at most %d characters", models.MaxUsernameLength))
	case !usernamePattern.MatchString(in.Username):
		v.Add("username", "username may contain only letters, digits and @/./+/-/_")
	default:
		exists, err := s.users.Exists(ctx, in.Username)
		if err != nil {
			return err
		}
		if exists {
			v.Add("username", "username already exists")
		}
	}

	if in.Email != "" {
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			v.Add("email", "enter a valid email address")
		}
	}

	if in.Password == "" {
		v.Add("password", "password is required")
	} else if s.passwordPolicy {
		for _, problem := range PasswordProblems(in.Username, in.Password) {
			v.Add("password", problem)
		}
	}
	return v.Err()
}

// Register validates in and stores a new user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if err := s.validate(ctx, &in); err != nil {
		return models.User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, in.Username, in.Email, hash)
}

// Login returns models.ErrInvalidCredentials without saying which part was
// wrong.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		compareDummy(password)
		return models.User{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return models.User{}, models.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) User(ctx context.Context, id int64) (models.User, error) {
	return s.users.GetByID(ctx, id)
}
