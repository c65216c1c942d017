// Package session derives the authenticated identity from the stored bearer
// credential and exposes login/logout transitions and role checks.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded, unverified payload of a credential.
type Claims = jwt.MapClaims

// ClaimTable lists candidate claim keys in priority order. The issuing backend
// may emit any of them depending on its claim-mapping configuration.
type ClaimTable []string

var (
	DefaultRoleClaims = ClaimTable{
		"role",
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/role",
	}
	DefaultSubjectClaims = ClaimTable{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
		"nameid",
		"sub",
	}
	DefaultNameClaims = ClaimTable{
		"unique_name",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"name",
	}
)

// Lookup returns the first non-empty value found under the table's keys.
func (t ClaimTable) Lookup(claims Claims) (string, bool) {
	for _, key := range t {
		if v := claimString(claims[key]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Tables groups the lookup tables used to build an Identity.
type Tables struct {
	Role    ClaimTable
	Subject ClaimTable
	Name    ClaimTable
}

func DefaultTables() Tables {
	return Tables{
		Role:    DefaultRoleClaims,
		Subject: DefaultSubjectClaims,
		Name:    DefaultNameClaims,
	}
}

// Decode reads the payload of a credential without verifying its signature.
// Trust is delegated to the issuer; this only gives read access to claims.
func Decode(token string) (Claims, error) {
	claims := Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return claims, nil
}

// Identity is the derived, non-persisted view of a credential.
type Identity struct {
	Subject   string
	Name      string
	Role      string
	ExpiresAt time.Time
}

// NewIdentity decodes token. A token that fails to decode yields an empty
// identity: no role, no subject.
func NewIdentity(token string, tables Tables) Identity {
	claims, err := Decode(token)
	if err != nil {
		return Identity{}
	}

	var id Identity
	id.Role, _ = tables.Role.Lookup(claims)
	id.Subject, _ = tables.Subject.Lookup(claims)
	id.Name, _ = tables.Name.Lookup(claims)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id
}

// Expired reports whether the credential carried an expiry that is in the past.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

func claimString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		// multi-valued claims: first usable entry wins
		for _, item := range val {
			if s := claimString(item); s != "" {
				return s
			}
		}
	}
	return ""
}
