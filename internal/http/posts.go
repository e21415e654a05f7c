package httpapp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/inkpost/inkpost/internal/model"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/upload"
)

const minDescriptionLength = 12

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Creates a post owned by the caller. A thumbnail image of at most 2MB is required.
//	@Tags			Posts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			title		formData	string	true	"Title"
//	@Param			category	formData	string	true	"Category"
//	@Param			description	formData	string	true	"Body"
//	@Param			thumbnail	formData	file	true	"Thumbnail image"
//	@Success		201			{object}	model.Post
//	@Failure		401			{object}	map[string]string
//	@Failure		403			{object}	map[string]string
//	@Failure		422			{object}	map[string]string	"Validation error"
//	@Router			/api/posts/ [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	const tooLarge = "Thumbnail too big. File should be less than 2MB."
	in, err := readInput(w, r, upload.MaxThumbnailBytes)
	if err != nil {
		fail(w, r, inputError(err, tooLarge))
		return
	}
	title := strings.TrimSpace(in["title"])
	category := strings.TrimSpace(in["category"])
	description := in["description"]
	fh := formFile(r, "thumbnail")
	if blank(title, category, description) || fh == nil {
		fail(w, r, validation("Please fill all the fields and choose a thumbnail"))
		return
	}
	if !model.ValidCategory(category) {
		fail(w, r, validation(category+" is not a valid category"))
		return
	}
	if fh.Size > upload.MaxThumbnailBytes {
		fail(w, r, validation(tooLarge))
		return
	}

	me := identity(r)
	if _, err := s.store.GetUser(r.Context(), me.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("User not found"))
			return
		}
		fail(w, r, internal("An error occurred while creating the post", err))
		return
	}

	name, err := s.uploads.Save(fh, upload.MaxThumbnailBytes)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			fail(w, r, validation(tooLarge))
			return
		}
		fail(w, r, internal("An error occurred while creating the post", err))
		return
	}

	post := model.Post{
		Title:       title,
		Category:    category,
		Description: description,
		Thumbnail:   name,
		CreatorID:   me.ID,
	}
	if err := s.store.CreatePost(r.Context(), &post); err != nil {
		s.uploads.Discard(name)
		fail(w, r, internal("Post couldn't be created", err))
		return
	}
	// The post exists at this point; a failed counter update is logged only.
	if err := s.store.AdjustUserPostCount(r.Context(), me.ID, 1); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user_id", me.ID).Str("post_id", post.ID).Msg("increment post count")
	}
	writeJSON(w, http.StatusCreated, post)
}

// handleListPosts godoc
//
//	@Summary	List posts, most recently updated first
//	@Tags		Posts
//	@Produce	json
//	@Success	200	{array}	model.Post
//	@Router		/api/posts/ [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		fail(w, r, internal("An error occurred while fetching posts", err))
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleGetPost godoc
//
//	@Summary	Get a post
//	@Tags		Posts
//	@Produce	json
//	@Param		id	path		string	true	"Post ID"
//	@Success	200	{object}	model.Post
//	@Failure	404	{object}	map[string]string	"Post not found"
//	@Router		/api/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failPostLookup(w, r, err, "An error occurred while fetching the post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleCategoryPosts godoc
//
//	@Summary	List posts in a category, newest first
//	@Tags		Posts
//	@Produce	json
//	@Param		category	path	string	true	"Category"
//	@Success	200			{array}	model.Post
//	@Router		/api/posts/categories/{category} [get]
func (s *Server) handleCategoryPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPostsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		fail(w, r, internal("An error occurred while fetching category posts", err))
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleUserPosts godoc
//
//	@Summary	List a user's posts, newest first
//	@Tags		Posts
//	@Produce	json
//	@Param		id	path	string	true	"User ID"
//	@Success	200	{array}	model.Post
//	@Router		/api/posts/users/{id} [get]
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPostsByCreator(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, internal("An error occurred while fetching user posts", err))
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleEditPost godoc
//
//	@Summary		Edit a post
//	@Description	Only the creator may edit. Sending a new thumbnail replaces the old file.
//	@Tags			Posts
//	@Accept			multipart/form-data,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Post ID"
//	@Param			title		formData	string	true	"Title"
//	@Param			category	formData	string	true	"Category"
//	@Param			description	formData	string	true	"Body, at least 12 characters"
//	@Param			thumbnail	formData	file	false	"Replacement thumbnail"
//	@Success		200			{object}	model.Post
//	@Failure		403			{object}	map[string]string	"Not the creator"
//	@Failure		404			{object}	map[string]string	"Post not found"
//	@Failure		422			{object}	map[string]string	"Validation error"
//	@Router			/api/posts/{id} [patch]
func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	const tooLarge = "Thumbnail too big. Should be less than 2MB"
	in, err := readInput(w, r, upload.MaxThumbnailBytes)
	if err != nil {
		fail(w, r, inputError(err, tooLarge))
		return
	}
	title := strings.TrimSpace(in["title"])
	category := strings.TrimSpace(in["category"])
	description := in["description"]
	if blank(title, category, description) || len(strings.TrimSpace(description)) < minDescriptionLength {
		fail(w, r, validation("Fill in all fields correctly"))
		return
	}
	if !model.ValidCategory(category) {
		fail(w, r, validation(category+" is not a valid category"))
		return
	}

	post, err := s.store.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failPostLookup(w, r, err, "An error occurred while updating the post")
		return
	}
	if post.CreatorID != identity(r).ID {
		fail(w, r, forbidden("Unauthorized"))
		return
	}

	var replaced string
	if fh := formFile(r, "thumbnail"); fh != nil {
		if fh.Size > upload.MaxThumbnailBytes {
			fail(w, r, validation(tooLarge))
			return
		}
		name, err := s.uploads.Save(fh, upload.MaxThumbnailBytes)
		if err != nil {
			if errors.Is(err, upload.ErrTooLarge) {
				fail(w, r, validation(tooLarge))
				return
			}
			fail(w, r, internal("An error occurred while updating the post", err))
			return
		}
		replaced, post.Thumbnail = post.Thumbnail, name
	}

	post.Title = title
	post.Category = category
	post.Description = description
	post.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdatePost(r.Context(), &post); err != nil {
		if replaced != "" {
			s.uploads.Discard(post.Thumbnail)
		}
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("Post not found"))
			return
		}
		fail(w, r, internal("Could not update post", err))
		return
	}
	if replaced != "" {
		s.uploads.Discard(replaced)
	}
	writeJSON(w, http.StatusOK, post)
}

// handleDeletePost godoc
//
//	@Summary		Delete a post
//	@Description	Only the creator may delete. Removes the thumbnail and decrements the creator's post count.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{string}	string	"Confirmation"
//	@Failure		403	{object}	map[string]string	"Not the creator"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/api/posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.failPostLookup(w, r, err, "An error occurred while deleting the post")
		return
	}
	me := identity(r)
	if post.CreatorID != me.ID {
		fail(w, r, forbidden("You do not have permission to delete this post"))
		return
	}

	if err := s.uploads.Remove(post.Thumbnail); err != nil {
		fail(w, r, internal("Error deleting the thumbnail", err))
		return
	}
	if err := s.store.DeletePost(r.Context(), post.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, r, notFoundErr("Post not found"))
			return
		}
		fail(w, r, internal("An error occurred while deleting the post", err))
		return
	}
	if err := s.store.AdjustUserPostCount(r.Context(), me.ID, -1); err != nil {
		fail(w, r, internal("An error occurred while deleting the post", err))
		return
	}
	hlog.FromRequest(r).Info().Str("post_id", post.ID).Str("user_id", me.ID).Msg("post deleted")
	writeJSON(w, http.StatusOK, fmt.Sprintf("Post %s deleted successfully.", post.ID))
}

func (s *Server) failPostLookup(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, store.ErrNotFound) {
		fail(w, r, notFoundErr("Post not found"))
		return
	}
	fail(w, r, internal(fallback, err))
}
