// Package httpapp provides the HTTP server for Inkpost.
//
//	@title						Inkpost API
//	@version					1.0
//	@description				Blog backend: accounts, posts with image thumbnails, and author profiles.
//	@description
//	@description				## Authentication
//	@description
//	@description				Register once, then log in to receive a bearer token valid for 24 hours:
//	@description				```bash
//	@description				curl -X POST /api/users/register -d '{"name":"Ada","email":"ada@example.com","password":"secret1","password2":"secret1"}'
//	@description				curl -X POST /api/users/login -d '{"email":"ada@example.com","password":"secret1"}'
//	@description				# Returns: {"token": "TOKEN", "id": "...", "name": "Ada"}
//	@description				```
//	@description				Send it on every write:
//	@description				```bash
//	@description				curl -X POST /api/posts/ -H "Authorization: Bearer TOKEN" -F title=Hello -F category=Art -F description=... -F thumbnail=@cover.png
//	@description				```
//	@description
//	@description				A missing token yields 401, an invalid or expired one 403.
//	@description				Errors are returned as `{"message": "..."}`.
//
//	@contact.name				Inkpost
//	@license.name				MIT
//
//	@host						localhost:8000
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				"Bearer " followed by the token from /api/users/login
//
//	@tag.name					Users
//	@tag.description			Registration, login and author profiles.
//
//	@tag.name					Posts
//	@tag.description			Blog posts. Only the creator may edit or delete a post.
//
//	@tag.name					System
//	@tag.description			Health checks.
package httpapp

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.6 init --dir . --generalInfo doc.go --output ../../docs --outputTypes go --parseDependency --parseInternal
