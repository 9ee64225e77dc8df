package models

import "time"

// Role is a closed enum over the platform's profile types. Permission and
// transition tables key off this type instead of raw strings.
type Role string

const (
	RoleModel        Role = "model"
	RolePhotographer Role = "photographer"
	RoleStylist      Role = "stylist"
	RoleDesigner     Role = "designer"
	RoleAgency       Role = "agency"
	RoleBrand        Role = "brand"
	RoleCompany      Role = "company"
)

// AllRoles lists every valid profile role.
var AllRoles = []Role{
	RoleModel, RolePhotographer, RoleStylist, RoleDesigner,
	RoleAgency, RoleBrand, RoleCompany,
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	UserType     Role      `json:"user_type"`
	Headline     string    `json:"headline,omitempty"`
	City         string    `json:"city,omitempty"`
	IsActive     bool      `json:"is_active"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
