package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// VoterStatus is the registration state of a voter.
type VoterStatus string

const (
	VoterStatusPending                     VoterStatus = "pending"
	VoterStatusApprovedPendingVerification VoterStatus = "approved_pending_verification"
	VoterStatusRegistered                  VoterStatus = "registered"
	VoterStatusDeactivated                 VoterStatus = "deactivated"
)

// ParseVoterStatus converts raw input into a VoterStatus, rejecting unknown values.
func ParseVoterStatus(raw string) (VoterStatus, error) {
	status := VoterStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown voter status %q", raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the known variants.
func (s VoterStatus) Valid() bool {
	switch s {
	case VoterStatusPending, VoterStatusApprovedPendingVerification, VoterStatusRegistered, VoterStatusDeactivated:
		return true
	}
	return false
}

func (VoterStatus) GormDataType() string { return "string" }

func (s VoterStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown voter status %q", string(s))
	}
	return string(s), nil
}

func (s *VoterStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseVoterStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ElectionStatus is the persisted lifecycle state of the election.
type ElectionStatus string

const (
	ElectionStatusDraft  ElectionStatus = "draft"
	ElectionStatusActive ElectionStatus = "active"
	ElectionStatusClosed ElectionStatus = "closed"
)

// ParseElectionStatus converts raw input into an ElectionStatus.
func ParseElectionStatus(raw string) (ElectionStatus, error) {
	status := ElectionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown election status %q", raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the known variants.
func (s ElectionStatus) Valid() bool {
	switch s {
	case ElectionStatusDraft, ElectionStatusActive, ElectionStatusClosed:
		return true
	}
	return false
}

func (ElectionStatus) GormDataType() string { return "string" }

func (s ElectionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown election status %q", string(s))
	}
	return string(s), nil
}

func (s *ElectionStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseElectionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Role identifies an administrator's privilege level.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleModerator  Role = "moderator"
)

// ParseRole converts raw input into a Role. Whitespace and case are ignored.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown admin role %q", raw)
	}
	return role, nil
}

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleSuperadmin || r == RoleModerator
}

func (Role) GormDataType() string { return "string" }

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown admin role %q", string(r))
	}
	return string(r), nil
}

func (r *Role) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("unexpected null enum value")
	default:
		return "", fmt.Errorf("unsupported enum source %T", src)
	}
}
