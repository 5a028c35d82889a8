package transport

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdateRequest struct {
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
}
