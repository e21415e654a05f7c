package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/inkpost/inkpost/internal/auth"
	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/upload"
)

const minPasswordLength = 6

type registerResponse struct {
	Message string      `json:"message"`
	User    userSummary `json:"user"`
}

type userSummary struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// handleRegister godoc
//
//	@Summary		Register a user
//	@Description	Creates an account. Emails are stored lower-cased and must be unique.
//	@Tags			Users
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			user	body		object{name=string,email=string,password=string,password2=string}	true	"Registration data"
//	@Success		201		{object}	registerResponse
//	@Failure		422		{object}	map[string]string	"Validation error or duplicate email"
//	@Failure		429		{object}	map[string]string	"Rate limited"
//	@Router			/api/users/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r, 0)
	if err != nil {
		fail(w, r, inputError(err, "Request too large"))
		return
	}
	name := strings.TrimSpace(in["name"])
	email := strings.ToLower(strings.TrimSpace(in["email"]))
	password, password2 := in["password"], in["password2"]

	if blank(name, email, password, password2) {
		fail(w, r, validation("Fill in all fields"))
		return
	}
	if !model.ValidEmail(email) {
		fail(w, r, validation("Please provide a valid email address"))
		return
	}
	if _, err := s.store.FindUserByEmail(r.Context(), email); err == nil {
		fail(w, r, validation("Email already exists."))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		fail(w, r, internal("User registration failed.", err))
		return
	}
	if len(password) < minPasswordLength {
		fail(w, r, validation("Password should be at least 6 characters."))
		return
	}
	if len(password) > auth.MaxPasswordBytes {
		fail(w, r, validation("Password should be at most 72 characters."))
		return
	}
	if password != password2 {
		fail(w, r, validation("Passwords do not match"))
		return
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		fail(w, r, internal("User registration failed.", err))
		return
	}
	user := model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			fail(w, r, validation("Email already exists."))
			return
		}
		fail(w, r, internal("User registration failed.", err))
		return
	}

	hlog.FromRequest(r).Info().Str("user_id", user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "New user registered",
		User:    userSummary{Email: user.Email, Name: user.Name},
	})
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a bearer token valid for 24 hours.
//	@Tags			Users
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			credentials	body		object{email=string,password=string}	true	"Credentials"
//	@Success		200			{object}	loginResponse
//	@Failure		422			{object}	map[string]string	"Invalid credentials"
//	@Failure		429			{object}	map[string]string	"Rate limited"
//	@Router			/api/users/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r, 0)
	if err != nil {
		fail(w, r, inputError(err, "Request too large"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(in["email"]))
	password := in["password"]
	if blank(email, password) {
		fail(w, r, validation("Fill in all fields"))
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		fail(w, r, internal("Login failed. Please check your credentials", err))
		return
	}
	// user.PasswordHash is empty for unknown emails; the check still runs.
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		fail(w, r, validation("Invalid credentials"))
		return
	}

	tok, err := s.auth.IssueToken(auth.Identity{ID: user.ID, Name: user.Name})
	if err != nil {
		fail(w, r, internal("Login failed. Please check your credentials", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: tok.Value, ID: tok.ID, Name: tok.Name})
}

// handleListUsers godoc
//
//	@Summary	List authors
//	@Tags		Users
//	@Produce	json
//	@Success	200	{array}		model.User
//	@Failure	500	{object}	map[string]string
//	@Router		/api/users/ [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		fail(w, r, internal("Failed to retrieve authors", err))
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleGetUser godoc
//
//	@Summary	Get a user profile
//	@Tags		Users
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	model.User
//	@Failure	404	{object}	map[string]string	"User not found"
//	@Router		/api/users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("User not found"))
			return
		}
		fail(w, r, internal("Failed to retrieve user", err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleChangeAvatar godoc
//
//	@Summary		Change profile picture
//	@Description	Replaces the caller's avatar. The previous file is removed.
//	@Tags			Users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			avatar	formData	file	true	"Image, at most 500KB"
//	@Success		200		{object}	map[string]string	"New avatar file name"
//	@Failure		401		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		422		{object}	map[string]string
//	@Router			/api/users/change-avatar [patch]
func (s *Server) handleChangeAvatar(w http.ResponseWriter, r *http.Request) {
	const tooLarge = "Profile picture is too large"
	if _, err := readInput(w, r, upload.MaxAvatarBytes); err != nil {
		fail(w, r, inputError(err, tooLarge))
		return
	}
	fh := formFile(r, "avatar")
	if fh == nil {
		fail(w, r, validation("Please choose an image"))
		return
	}
	if fh.Size > upload.MaxAvatarBytes {
		fail(w, r, validation(tooLarge))
		return
	}

	me := identity(r)
	user, err := s.store.GetUser(r.Context(), me.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("User not found"))
			return
		}
		fail(w, r, internal("Failed to change avatar", err))
		return
	}

	name, err := s.uploads.Save(fh, upload.MaxAvatarBytes)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			fail(w, r, validation(tooLarge))
			return
		}
		fail(w, r, internal("Error uploading avatar", err))
		return
	}
	if err := s.store.SetUserAvatar(r.Context(), user.ID, name); err != nil {
		s.uploads.Discard(name)
		fail(w, r, internal("Failed to change avatar", err))
		return
	}
	if user.Avatar != "" {
		s.uploads.Discard(user.Avatar)
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": name})
}

// handleEditUser godoc
//
//	@Summary		Edit profile details
//	@Description	Updates name, email and password. The current password is required.
//	@Tags			Users
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			details	body		object{name=string,email=string,currentPassword=string,newPassword=string,confirmNewPassword=string}	true	"New details"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	map[string]string	"User not found"
//	@Failure		422		{object}	map[string]string	"Validation error"
//	@Router			/api/users/edit-user [patch]
func (s *Server) handleEditUser(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r, 0)
	if err != nil {
		fail(w, r, inputError(err, "Request too large"))
		return
	}
	name := strings.TrimSpace(in["name"])
	email := strings.ToLower(strings.TrimSpace(in["email"]))
	current, next, confirm := in["currentPassword"], in["newPassword"], in["confirmNewPassword"]
	if blank(name, email, current, next, confirm) {
		fail(w, r, validation("Fill in all fields"))
		return
	}

	me := identity(r)
	user, err := s.store.GetUser(r.Context(), me.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("User not found"))
			return
		}
		fail(w, r, internal("Failed to update user details", err))
		return
	}

	if !model.ValidEmail(email) {
		fail(w, r, validation("Please provide a valid email address"))
		return
	}
	if other, err := s.store.FindUserByEmail(r.Context(), email); err == nil && other.ID != user.ID {
		fail(w, r, validation("Email already in use"))
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		fail(w, r, internal("Failed to update user details", err))
		return
	}

	if err := s.auth.CheckPassword(user.PasswordHash, current); err != nil {
		fail(w, r, validation("Current password is incorrect"))
		return
	}
	if next != confirm {
		fail(w, r, validation("New passwords do not match"))
		return
	}
	if len(next) < minPasswordLength {
		fail(w, r, validation("Password should be at least 6 characters."))
		return
	}
	if len(next) > auth.MaxPasswordBytes {
		fail(w, r, validation("Password should be at most 72 characters."))
		return
	}

	hash, err := s.auth.HashPassword(next)
	if err != nil {
		fail(w, r, internal("Failed to update user details", err))
		return
	}
	if err := s.store.UpdateUserProfile(r.Context(), user.ID, name, email, hash); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			fail(w, r, validation("Email already in use"))
			return
		}
		fail(w, r, internal("Failed to update user details", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User details updated successfully"})
}
