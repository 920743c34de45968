package domain

// Identity is the authenticated user's profile as issued by the management API.
type Identity struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
	Role           Role   `json:"role"`
	IsPasswordSet  bool   `json:"isPasswordSet"`
}

// IdentityPatch carries the fields confirmed by the API after a profile or password change.
type IdentityPatch struct {
	Name          *string
	Email         *string
	Role          *Role
	IsPasswordSet *bool
}

// Clone returns a copy safe to hand to callers.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	return &cp
}

// Apply shallow-merges the patch. A password that has been set stays set.
func (i *Identity) Apply(patch IdentityPatch) {
	if patch.Name != nil {
		i.Name = *patch.Name
	}
	if patch.Email != nil {
		i.Email = *patch.Email
	}
	if patch.Role != nil {
		if role, err := ParseRole(string(*patch.Role)); err == nil {
			i.Role = role
		}
	}
	if patch.IsPasswordSet != nil && *patch.IsPasswordSet {
		i.IsPasswordSet = true
	}
}
