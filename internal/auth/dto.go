package auth

// LoginRequest captures the login form.
type LoginRequest struct {
	Username string `form:"username" mod:"trim" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
}

// RegisterRequest captures the signup form. Cross-field password rules are
// enforced by the service so the error lands on the right field.
type RegisterRequest struct {
	Username  string `form:"username" mod:"trim" validate:"required,max=150"`
	Email     string `form:"email" mod:"trim" validate:"required,email,max=254"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required"`
}
