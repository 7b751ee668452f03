package handlers

import (
	"notejournal/auth"
	"notejournal/journal"
)

// Handler serves the JSON API. Identity comes from the request context set
// by middleware.RequireAuth and is passed explicitly to the services.
type Handler struct {
	journal  *journal.Service
	accounts *auth.Service
	tokens   *auth.Tokens
}

func New(j *journal.Service, accounts *auth.Service, tokens *auth.Tokens) *Handler {
	return &Handler{journal: j, accounts: accounts, tokens: tokens}
}
