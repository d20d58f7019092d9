package auth

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/internal/users"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/security"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// commonPasswords is a short deny list of the most guessed passwords.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "12345678": {}, "123456789": {},
	"qwertyuiop": {}, "iloveyou": {}, "sunshine": {}, "football": {},
	"baseball": {}, "letmein1": {}, "welcome1": {}, "trustno1": {},
	"moviestore": {}, "abcdefgh": {}, "passw0rd": {}, "qwerty123": {},
}

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{db: params.DB, passwordCfg: params.PasswordConfig}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	fields := validateRegistration(username, req.Password1, req.Password2)
	if len(fields) > 0 {
		return nil, validationError(fields)
	}

	passwordHash, err := security.HashPassword(req.Password1, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)

		taken, err := repo.UsernameTaken(ctx, username)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		}
		if taken {
			return usernameTakenError()
		}

		created, err = repo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			if db.IsUniqueViolation(err, users.UsernameConstraint) {
				return usernameTakenError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateRegistration(username, password1, password2 string) map[string]string {
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "This field is required."
	} else if len([]rune(username)) > 150 {
		fields["username"] = "Ensure this value has at most 150 characters."
	} else if !usernamePattern.MatchString(username) {
		fields["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}

	if password1 != password2 {
		fields["password2"] = "The two password fields didn't match."
		return fields
	}
	if msg := passwordProblem(password1, username); msg != "" {
		fields["password2"] = msg
	}
	return fields
}

func passwordProblem(password, username string) string {
	lower := strings.ToLower(password)
	switch {
	case len([]rune(password)) < minPasswordLength:
		return "This password is too short. It must contain at least 8 characters."
	case isAllDigits(password):
		return "This password is entirely numeric."
	case username != "" && strings.Contains(lower, strings.ToLower(username)):
		return "The password is too similar to the username."
	}
	if _, ok := commonPasswords[lower]; ok {
		return "This password is too common."
	}
	return ""
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func usernameTakenError() error {
	return validationError(map[string]string{"username": "A user with that username already exists."})
}

func validationError(fields map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid signup").WithDetails(fields)
}
