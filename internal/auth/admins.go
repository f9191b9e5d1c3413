package auth

import "strings"

// AdminSet holds the configured admin identities. Membership is decided by
// auth subject or by verified email; the check is fail-closed, so a nil
// identity or an empty set never grants access.
type AdminSet struct {
	subjects map[string]struct{}
	emails   map[string]struct{}
}

// NewAdminSet builds the admin allow-list from configuration values.
func NewAdminSet(subjects, emails []string) *AdminSet {
	set := &AdminSet{
		subjects: make(map[string]struct{}, len(subjects)),
		emails:   make(map[string]struct{}, len(emails)),
	}
	for _, subject := range subjects {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			set.subjects[trimmed] = struct{}{}
		}
	}
	for _, email := range emails {
		if trimmed := strings.ToLower(strings.TrimSpace(email)); trimmed != "" {
			set.emails[trimmed] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the identity belongs to the admin set.
func (s *AdminSet) Contains(identity *Identity) bool {
	if s == nil || identity == nil {
		return false
	}
	if identity.Subject != "" {
		if _, ok := s.subjects[identity.Subject]; ok {
			return true
		}
	}
	if identity.Email != "" {
		if _, ok := s.emails[strings.ToLower(identity.Email)]; ok {
			return true
		}
	}
	return false
}
