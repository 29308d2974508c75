package users

import (
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
)

// Summary is the public shape of a user returned by auth and profile endpoints.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Phone      *string    `json:"phone,omitempty"`
	SystemRole string     `json:"system_role"`
	CampusID   *uuid.UUID `json:"campus_id,omitempty"`
}

// FromModel maps the persistence model into the public summary.
func FromModel(user *models.User) Summary {
	if user == nil {
		return Summary{}
	}
	return Summary{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Phone:      user.Phone,
		SystemRole: string(user.SystemRole),
		CampusID:   user.CampusID,
	}
}
