//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// CreateProjectRequest is the operator's request to register and analyze a project.
// The exactly-one-target rule is enforced by the analyzer; the tags only check URL shape.
type CreateProjectRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	ScrapeURL string `json:"scrape_url,omitempty" validate:"omitempty,url"`
	RepoURL   string `json:"repo_url,omitempty" validate:"omitempty,url"`
}

// LoginRequest represents the operator login request.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued operator token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// validate caches struct metadata across requests.
var validate = validator.New(validator.WithRequiredStructEnabled())

func (r *CreateProjectRequest) Validate() error {
	return validate.Struct(r)
}

func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}
