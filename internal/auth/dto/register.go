package dto

type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	SchoolCode string `json:"school_code"`
	Language   string `json:"language,omitempty"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}
