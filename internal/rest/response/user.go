package response

import "github.com/Guyuepp/artfeed/domain"

const DateTimeFormat = "2006-01-02 15:04:05"

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func NewUserFromDomain(u *domain.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
	}
}
