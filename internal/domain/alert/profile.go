package alert

import (
	"fmt"
	"strings"
)

// Role is the capability a device was configured with.
type Role int

const (
	// RoleUnknown is the zero value and never valid in a stored profile.
	RoleUnknown Role = iota
	// RoleSenderCapable may raise alerts under the fixed policy name.
	RoleSenderCapable
	// RoleReceiverOnly only receives, confirms and silences alerts.
	RoleReceiverOnly
)

// Role names as they appear in settings files and on the command line.
const (
	roleSenderName   = "sender"
	roleReceiverName = "receiver"
)

// String returns the settings-file name of the role.
func (r Role) String() string {
	switch r {
	case RoleSenderCapable:
		return roleSenderName
	case RoleReceiverOnly:
		return roleReceiverName
	default:
		return "unknown"
	}
}

// ParseRole converts a settings-file role name into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case roleSenderName:
		return RoleSenderCapable, nil
	case roleReceiverName:
		return RoleReceiverOnly, nil
	default:
		return RoleUnknown, fmt.Errorf("%q: %w", s, ErrUnknownRole)
	}
}

// Profile binds a role to the display name the device uses in the shared document.
type Profile struct {
	// Role decides which transitions this device may originate.
	Role Role
	// Name is written as raiser or resolver; for senders it is the policy name.
	Name string
}

// NewSenderProfile returns the sender-capable profile under the policy name.
func NewSenderProfile(policyName string) (*Profile, error) {
	name := strings.TrimSpace(policyName)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Profile{
		Role: RoleSenderCapable,
		Name: name,
	}, nil
}

// NewReceiverProfile returns a receiver-only profile. The name is upper-cased
// so that it reads the same on every device's history view.
func NewReceiverProfile(displayName string) (*Profile, error) {
	name := strings.ToUpper(strings.TrimSpace(displayName))
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Profile{
		Role: RoleReceiverOnly,
		Name: name,
	}, nil
}

// CanRaise reports whether the profile may originate an alert.
func (p *Profile) CanRaise() bool {
	return p != nil && p.Role == RoleSenderCapable
}

// Validate checks a profile loaded from storage.
func (p *Profile) Validate() error {
	if p == nil {
		return ErrProfileNotSelected
	}

	if p.Role != RoleSenderCapable && p.Role != RoleReceiverOnly {
		return fmt.Errorf("role %d: %w", p.Role, ErrUnknownRole)
	}

	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}

	return nil
}

// Clone returns a copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	cloned := *p

	return &cloned
}

// String renders the profile for logs and the console, e.g. "SALA MINIMIS (sender)".
func (p *Profile) String() string {
	if p == nil {
		return "<no profile>"
	}

	return fmt.Sprintf("%s (%s)", p.Name, p.Role)
}
