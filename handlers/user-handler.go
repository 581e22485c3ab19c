package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"taskhub/apperrors"
	"taskhub/middleware"
	"taskhub/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

func NewUserHandler(service *services.UserService) *UserHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &UserHandler{service: service, validate: validate}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required"`
	Password *string `json:"password"`
}

type requestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// decode reads the JSON body into dst and validates it.
func (h *UserHandler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.New(apperrors.ErrInvalidInput, "Invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			switch verr.Tag() {
			case "required":
				return apperrors.Newf(apperrors.ErrInvalidInput, "Field '%s' is required", verr.Field())
			case "oneof":
				return apperrors.Newf(apperrors.ErrInvalidInput, "Field '%s' must be one of: %s", verr.Field(), verr.Param())
			}
		}
	}
	return apperrors.New(apperrors.ErrInvalidInput, "Validation failed")
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		middleware.RecordAuthAttempt("register", false)
		writeError(w, err)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), middleware.IdentityFromContext(r.Context()), req.Name, req.Email, req.Password, req.Role)
	middleware.RecordAuthAttempt("register", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		middleware.RecordAuthAttempt("login", false)
		writeError(w, err)
		return
	}

	result, err := h.service.LoginUser(r.Context(), req.Email, req.Password)
	middleware.RecordAuthAttempt("login", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), mux.Vars(r)["id"], req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.DeleteUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User deleted successfully",
		"user":    user,
	})
}

func (h *UserHandler) DeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteAllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("%d users deleted", deleted),
		"deletedCount": deleted,
	})
}

func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.service.RequestPasswordReset(r.Context(), req.Email)
	middleware.RecordAuthAttempt("request_reset", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset token generated"})
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	middleware.RecordAuthAttempt("reset_password", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}
