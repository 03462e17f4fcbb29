package services

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"profeamigo/db"
	"profeamigo/models"
	"profeamigo/structs"
	"profeamigo/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError lists every problem with a request, in learner-facing text.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

var fieldMessages = map[string]string{
	"RegisterRequest.username":    "El nombre de usuario debe tener entre 3 y 50 caracteres.",
	"RegisterRequest.displayName": "El nombre para mostrar debe tener entre 2 y 100 caracteres.",
	"RegisterRequest.password":    "La contraseña debe tener al menos 4 caracteres.",
	"LoginRequest.username":       "Ingresa tu nombre de usuario.",
	"LoginRequest.password":       "Ingresa tu contraseña.",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// UserService registers learners and signs them in.
type UserService struct {
	repo     db.UserRepository
	validate *validator.Validate
}

func NewUserService(repo db.UserRepository) *UserService {
	return &UserService{repo: repo, validate: newValidator()}
}

func (s *UserService) check(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate request")
	}
	verr := &ValidationError{}
	seen := map[string]bool{}
	for _, fe := range fieldErrs {
		key := fe.Namespace()
		if seen[key] {
			continue
		}
		seen[key] = true
		msg, ok := fieldMessages[key]
		if !ok {
			msg = fe.Field() + " no es válido."
		}
		verr.Messages = append(verr.Messages, msg)
	}
	return verr
}

// Register creates the account. The display name defaults to the username.
func (s *UserService) Register(ctx context.Context, req structs.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.check(req); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, req structs.LoginRequest) (string, *models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.check(req); err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if errors.Is(err, db.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWTToken(strconv.FormatUint(user.ID, 10), user.Username, user.Name())
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
