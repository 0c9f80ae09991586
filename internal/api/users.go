package api

import (
	"errors"
	"log/slog"
	"net/http"

	"blog-backend/internal/auth"
	"blog-backend/internal/database"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService manages accounts. Signup is open; everything beyond /me
// requires a superuser.
type UserService struct {
	db   *gorm.DB
	auth func(http.Handler) http.Handler
}

func NewUserService(db *gorm.DB, authMiddleware func(http.Handler) http.Handler) *UserService {
	return &UserService{db: db, auth: authMiddleware}
}

func (s *UserService) AddRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/signup", RestHandler(s.Signup))

		r.Group(func(r chi.Router) {
			r.Use(s.auth)
			r.Get("/me", RestHandler(s.GetCurrentUser))
			r.Put("/me", RestHandler(s.UpdateCurrentUser))
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth, RequireSuperuser)
			r.Get("/", RestHandler(s.ListUsers))
			r.Post("/", RestHandler(s.CreateUser))
			r.Get("/{user_id}", RestHandler(s.GetUser))
			r.Put("/{user_id}", RestHandler(s.UpdateUser))
			r.Delete("/{user_id}", RestHandler(s.DeleteUser))
		})
	})
}

func (s *UserService) createUser(r *http.Request, req api.UserCreate, superuser bool) (any, error) {
	if req.Email == "" || req.Password == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "email and password are required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating user")
	}

	user := database.User{
		Id:             uuid.New(),
		Email:          req.Email,
		HashedPassword: hash,
		FullName:       req.FullName,
		IsActive:       true,
		IsSuperuser:    superuser && req.IsSuperuser,
	}
	if err := s.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, CodedErrorf(http.StatusConflict, "a user with email %s already exists", req.Email)
		}
		slog.Error("error creating user", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating user")
	}

	return toUser(user), nil
}

// Signup creates a regular account. The superuser flag in the request body
// is ignored here.
func (s *UserService) Signup(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UserCreate](r)
	if err != nil {
		return nil, err
	}
	return s.createUser(r, req, false)
}

func (s *UserService) CreateUser(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UserCreate](r)
	if err != nil {
		return nil, err
	}
	return s.createUser(r, req, true)
}

func (s *UserService) GetCurrentUser(r *http.Request) (any, error) {
	return toUser(*CurrentUser(r.Context())), nil
}

func (s *UserService) UpdateCurrentUser(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UserUpdate](r)
	if err != nil {
		return nil, err
	}

	// Users cannot grant themselves privileges or lock themselves out.
	req.IsSuperuser = nil
	req.IsActive = nil

	return s.applyUpdate(r, CurrentUser(r.Context()).Id, req)
}

func (s *UserService) ListUsers(r *http.Request) (any, error) {
	var users []database.User
	if err := s.db.WithContext(r.Context()).Order("email").Find(&users).Error; err != nil {
		slog.Error("error listing users", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing users")
	}

	result := api.UserList{Data: make([]api.User, 0, len(users)), Count: int64(len(users))}
	for _, user := range users {
		result.Data = append(result.Data, toUser(user))
	}
	return result, nil
}

func (s *UserService) GetUser(r *http.Request) (any, error) {
	userID, err := URLParamUUID(r, "user_id")
	if err != nil {
		return nil, err
	}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "user not found")
		}
		slog.Error("error getting user", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving user")
	}

	return toUser(user), nil
}

func (s *UserService) UpdateUser(r *http.Request) (any, error) {
	userID, err := URLParamUUID(r, "user_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UserUpdate](r)
	if err != nil {
		return nil, err
	}

	return s.applyUpdate(r, userID, req)
}

func (s *UserService) applyUpdate(r *http.Request, userID uuid.UUID, req api.UserUpdate) (any, error) {
	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "user not found")
		}
		slog.Error("error getting user", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving user")
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsSuperuser != nil {
		user.IsSuperuser = *req.IsSuperuser
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			slog.Error("error hashing password", "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "error updating user")
		}
		user.HashedPassword = hash
	}

	if err := s.db.WithContext(r.Context()).Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, CodedErrorf(http.StatusConflict, "a user with that email already exists")
		}
		slog.Error("error updating user", "user_id", userID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error updating user")
	}

	return toUser(user), nil
}

func (s *UserService) DeleteUser(r *http.Request) (any, error) {
	userID, err := URLParamUUID(r, "user_id")
	if err != nil {
		return nil, err
	}

	if CurrentUser(r.Context()).Id == userID {
		return nil, CodedErrorf(http.StatusBadRequest, "cannot delete your own account")
	}

	result := s.db.WithContext(r.Context()).Delete(&database.User{}, "id = ?", userID)
	if result.Error != nil {
		slog.Error("error deleting user", "user_id", userID, "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting user")
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "user not found")
	}

	return api.Message{Message: "User deleted successfully"}, nil
}

func toUser(user database.User) api.User {
	return api.User{
		Id:          user.Id,
		Email:       user.Email,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
	}
}
