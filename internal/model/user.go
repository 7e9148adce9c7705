package model

const (
	UserRoleAdmin  = "admin"
	UserRoleMember = "member"
)

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	StudyType      string `json:"study_type,omitempty"`
	CareerInterest string `json:"career_interest,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}
