// util/validation_util.go

package util

import (
	"fmt"

	"github.com/accesskit/gatekeeper/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateRole(role model.Role) error {
	if role.Name == "" {
		return fmt.Errorf("role name cannot be empty")
	}
	if role.Priority < 0 {
		return fmt.Errorf("role priority cannot be negative")
	}
	return nil
}

func (v *ValidationUtil) ValidatePermission(permission model.Permission) error {
	if permission.Resource == "" {
		return fmt.Errorf("permission resource cannot be empty")
	}
	if permission.Action == "" {
		return fmt.Errorf("permission action cannot be empty")
	}
	if permission.Name == "" {
		return fmt.Errorf("permission name cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateEffect(effect model.Effect) error {
	if effect != model.EffectAllow && effect != model.EffectDeny {
		return fmt.Errorf("effect must be either 'allow' or 'deny'")
	}
	return nil
}

func (v *ValidationUtil) ValidateAssignment(userID, roleID string) error {
	if userID == "" {
		return fmt.Errorf("assignment user ID cannot be empty")
	}
	if roleID == "" {
		return fmt.Errorf("assignment role ID cannot be empty")
	}
	return nil
}
