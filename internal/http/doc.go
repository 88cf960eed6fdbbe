// Package httpapp provides the HTTP server for Instaclone.
//
//	@title						Instaclone API
//	@version					1.0
//	@description				Photo sharing backend: accounts, photo articles, comments, favorites and follows.
//	@description
//	@description				## Authentication Flow
//	@description
//	@description				```
//	@description				┌──────────────────┐     ┌──────────────────┐     ┌──────────────────┐
//	@description				│  1. Sign up      │────▶│  2. Log in       │────▶│  3. Use token    │
//	@description				│  POST /users     │     │  POST /users/    │     │  Authorization:  │
//	@description				│                  │     │       login      │     │  Bearer TOKEN    │
//	@description				└──────────────────┘     └──────────────────┘     └──────────────────┘
//	@description				```
//	@description
//	@description				### Step 1: Sign up
//	@description				```bash
//	@description				curl -X POST /api/users -d '{"username":"alice1","email":"alice@example.com","password":"secret"}'
//	@description				```
//	@description
//	@description				### Step 2: Log in
//	@description				```bash
//	@description				curl -X POST /api/users/login -d '{"email":"alice@example.com","password":"secret"}'
//	@description				# Returns: {"user": {"username": "alice1", ..., "token": "TOKEN"}}
//	@description				```
//	@description
//	@description				### Step 3: Post a photo
//	@description				```bash
//	@description				curl -X POST /api/articles -H "Authorization: Bearer TOKEN" -F photos=@sunset.png -F description=sunset
//	@description				```
//	@description
//	@description				## Errors
//	@description				Every error is `{"message": "...", "errors": [{"field": "...", "message": "..."}], "status": 400}`.
//	@description				`errors` is present only for validation failures.
//
//	@contact.name				Instaclone
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /api/users/login
//
//	@tag.name					Users
//	@tag.description			Sign up, log in and manage your own account.
//
//	@tag.name					Profiles
//	@tag.description			Public profiles and the follow graph.
//
//	@tag.name					Articles
//	@tag.description			Photo posts with favorites. The feed shows your posts and those of the users you follow.
//
//	@tag.name					Comments
//	@tag.description			Flat, newest-first comments on articles.
//
//	@tag.name					Operations
//	@tag.description			Health and metrics.
package httpapp
