package search

import "fmt"

// Scope restricts a search to a tenant and optional sub-scopes. The user ID
// is mandatory: every query rendered against the store carries it as a
// pre-filter, so cross-tenant hits are structurally impossible.
type Scope struct {
	userID     string
	matterID   string
	documentID string
}

// NewScope validates and creates a Scope.
func NewScope(userID, matterID, documentID string) (Scope, error) {
	if userID == "" {
		return Scope{}, fmt.Errorf("user ID is required")
	}
	return Scope{userID: userID, matterID: matterID, documentID: documentID}, nil
}

// UserID returns the tenant key.
func (s Scope) UserID() string { return s.userID }

// MatterID returns the optional matter sub-scope.
func (s Scope) MatterID() string { return s.matterID }

// DocumentID returns the optional single-document scope.
func (s Scope) DocumentID() string { return s.documentID }
