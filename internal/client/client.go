// Package client provides a Go client for the Inkpost API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an Inkpost API client. Login stores the token used by the
// authenticated calls.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
	UserID     string
	Name       string
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Posts  int    `json:"posts"`
}

type Post struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Image is an upload. Name is the original file name sent to the server.
type Image struct {
	Name string
	Data io.Reader
}

type PostInput struct {
	Title       string
	Category    string
	Description string
	// Thumbnail is required on create and optional on edit.
	Thumbnail *Image
}

type ProfileInput struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Register creates an account. The password is sent twice as the server
// expects a confirmation.
func (c *Client) Register(name, email, password string) (*User, error) {
	body := map[string]string{
		"name":      name,
		"email":     email,
		"password":  password,
		"password2": password,
	}
	var result struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	if err := c.doJSON(http.MethodPost, "/api/users/register", body, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &User{Name: result.User.Name, Email: result.User.Email}, nil
}

// Login authenticates and keeps the token on the client.
func (c *Client) Login(email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var result struct {
		Token string `json:"token"`
		ID    string `json:"id"`
		Name  string `json:"name"`
	}
	if err := c.doJSON(http.MethodPost, "/api/users/login", body, http.StatusOK, &result); err != nil {
		return err
	}
	c.Token = result.Token
	c.UserID = result.ID
	c.Name = result.Name
	c.TokenExp = time.Now().Add(24 * time.Hour)
	return nil
}

// IsAuthenticated returns true if the client holds an unexpired token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

func (c *Client) ListUsers() ([]User, error) {
	var users []User
	err := c.doJSON(http.MethodGet, "/api/users/", nil, http.StatusOK, &users)
	return users, err
}

func (c *Client) GetUser(id string) (*User, error) {
	var user User
	if err := c.doJSON(http.MethodGet, "/api/users/"+url.PathEscape(id), nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangeAvatar uploads a new profile picture and returns its stored name.
func (c *Client) ChangeAvatar(img Image) (string, error) {
	var result struct {
		Avatar string `json:"avatar"`
	}
	err := c.doMultipart(http.MethodPatch, "/api/users/change-avatar", nil, "avatar", &img, http.StatusOK, &result)
	return result.Avatar, err
}

func (c *Client) EditProfile(in ProfileInput) error {
	return c.doJSON(http.MethodPatch, "/api/users/edit-user", in, http.StatusOK, nil)
}

func (c *Client) CreatePost(in PostInput) (*Post, error) {
	var post Post
	if err := c.doMultipart(http.MethodPost, "/api/posts/", in.fields(), "thumbnail", in.Thumbnail, http.StatusCreated, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// EditPost sends multipart when a new thumbnail is given and JSON otherwise.
func (c *Client) EditPost(id string, in PostInput) (*Post, error) {
	var post Post
	path := "/api/posts/" + url.PathEscape(id)
	var err error
	if in.Thumbnail != nil {
		err = c.doMultipart(http.MethodPatch, path, in.fields(), "thumbnail", in.Thumbnail, http.StatusOK, &post)
	} else {
		err = c.doJSON(http.MethodPatch, path, in.fields(), http.StatusOK, &post)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) ListPosts() ([]Post, error) {
	var posts []Post
	err := c.doJSON(http.MethodGet, "/api/posts/", nil, http.StatusOK, &posts)
	return posts, err
}

func (c *Client) GetPost(id string) (*Post, error) {
	var post Post
	if err := c.doJSON(http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, http.StatusOK, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) ListCategoryPosts(category string) ([]Post, error) {
	var posts []Post
	err := c.doJSON(http.MethodGet, "/api/posts/categories/"+url.PathEscape(category), nil, http.StatusOK, &posts)
	return posts, err
}

func (c *Client) ListUserPosts(userID string) ([]Post, error) {
	var posts []Post
	err := c.doJSON(http.MethodGet, "/api/posts/users/"+url.PathEscape(userID), nil, http.StatusOK, &posts)
	return posts, err
}

// DeletePost returns the server's confirmation message.
func (c *Client) DeletePost(id string) (string, error) {
	var msg string
	err := c.doJSON(http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, http.StatusOK, &msg)
	return msg, err
}

// Health reports whether the server and its store are up.
func (c *Client) Health() error {
	return c.doJSON(http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

func (in PostInput) fields() map[string]string {
	return map[string]string{
		"title":       in.Title,
		"category":    in.Category,
		"description": in.Description,
	}
}

func (c *Client) doJSON(method, path string, body any, want int, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, want, out)
}

func (c *Client) doMultipart(method, path string, fields map[string]string, fileField string, img *Image, want int, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if img != nil {
		fw, err := mw.CreateFormFile(fileField, img.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, img.Data); err != nil {
			return fmt.Errorf("read %s: %w", img.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, want, out)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &payload) != nil || payload.Message == "" {
			payload.Message = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// TestPassword is the password TestHelper registers accounts with.
const TestPassword = "password123"

func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers name (if needed) as name@example.test
// and returns a logged-in client.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, error) {
	c := New(h.BaseURL)
	email := strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "@example.test"
	if _, err := c.Register(name, email, TestPassword); err != nil && StatusOf(err) != http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := c.Login(email, TestPassword); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

// GetToken returns just the bearer token for name.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
