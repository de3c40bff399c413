package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role values are the labels the backend issues in token claims.
type Role string

const (
	RolePatient    Role = "患者"
	RoleDoctor     Role = "医生"
	RoleNurse      Role = "护士"
	RolePharmacist Role = "药师"
	RoleAdmin      Role = "管理员"
)

var roleAliases = map[string]Role{
	"patient":    RolePatient,
	"doctor":     RoleDoctor,
	"nurse":      RoleNurse,
	"pharmacist": RolePharmacist,
	"admin":      RoleAdmin,
}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleNurse, RolePharmacist, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) Label() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleDoctor:
		return "doctor"
	case RoleNurse:
		return "nurse"
	case RolePharmacist:
		return "pharmacist"
	case RoleAdmin:
		return "admin"
	case "":
		return "none"
	default:
		return string(r)
	}
}

// ParseRole accepts either the backend label or its English alias.
func ParseRole(raw string) (Role, error) {
	trimmed := strings.TrimSpace(raw)
	if role := Role(trimmed); role.Valid() {
		return role, nil
	}
	if role, ok := roleAliases[strings.ToLower(trimmed)]; ok {
		return role, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

type Session struct {
	Token     string
	SubjectID string
	Role      Role
	HeadNurse bool
}

func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

func (s Session) IsHeadNurse() bool {
	return s.HeadNurse && s.Role == RoleNurse
}

// WithRole sets the role and drops the head-nurse flag for any role other than nurse.
func (s Session) WithRole(role Role) Session {
	s.Role = role
	if role != RoleNurse {
		s.HeadNurse = false
	}
	return s
}

// TokenClaims holds the optional claims carried by a bearer token. Empty fields are absent claims.
type TokenClaims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}
