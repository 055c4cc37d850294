// Package token encodes and decodes the signed session tokens handed out by
// the issue-token endpoint.
package token

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"go-token-auth/internal/model"
)

// Profile selects which directory fields are embedded in a token.
type Profile string

const (
	ProfileMinimal Profile = "minimal"
	ProfileFull    Profile = "full"
)

func ParseProfile(raw string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProfileMinimal:
		return ProfileMinimal, nil
	case ProfileFull:
		return ProfileFull, nil
	default:
		return "", fmt.Errorf("unknown claims profile %q", raw)
	}
}

type Claims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsFor builds the claim set for user. Timestamps are filled in by Encode.
func ClaimsFor(user model.User, profile Profile) Claims {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}

	if profile == ProfileFull {
		claims.FirstName = user.FirstName
		claims.LastName = user.LastName
		claims.DisplayName = user.DisplayName
		claims.AvatarURL = user.AvatarURL
	}

	return claims
}
