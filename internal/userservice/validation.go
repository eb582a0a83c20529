package userservice

import (
	"regexp"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	EmailRX     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UsernameRX  = regexp.MustCompile(`^[a-zA-Z0-9_.@+\-]+$`)
	UppercaseRX = regexp.MustCompile("[A-Z]")
	LowercaseRX = regexp.MustCompile("[a-z]")
	NumberRX    = regexp.MustCompile("[0-9]")
	SymbolRX    = regexp.MustCompile(`[#?!@$%^&*_\\-]`)
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckStringLength(username, 3, 150), "username", "must be between 3 and 150 characters long")
	v.Check(UsernameRX.MatchString(username), "username", "may only contain letters, numbers and @/./+/-/_ characters")
}

// validateEmail accepts an empty address; registration does not require one.
func validateEmail(v *common.Validator, email string) {
	if email == "" {
		return
	}

	v.Check(len(email) <= 254, "email", "must not be more than 254 characters long")
	v.Check(EmailRX.MatchString(email), "email", "must be a valid email address")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")

	value := v.CheckStringLength(password, 8, 72) && UppercaseRX.MatchString(password) && LowercaseRX.MatchString(password) && NumberRX.MatchString(password) && SymbolRX.MatchString(password)
	v.Check(value, "password", "must be between 8 and 72 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one symbol")
}

func validateRegistration(v *common.Validator, r RegisterRequest) {
	validateUsername(v, r.Username)
	validateEmail(v, r.Email)
	validatePassword(v, r.Password)
	v.Check(r.Password == r.Password2, "password2", "password fields didn't match")
	v.Check(v.MaxChars(r.FirstName, 150), "first_name", "must not be more than 150 characters long")
	v.Check(v.MaxChars(r.LastName, 150), "last_name", "must not be more than 150 characters long")
}

func validateProfileUpdate(v *common.Validator, r UpdateProfileRequest) {
	if r.FirstName != nil {
		v.Check(v.MaxChars(*r.FirstName, 150), "first_name", "must not be more than 150 characters long")
	}
	if r.LastName != nil {
		v.Check(v.MaxChars(*r.LastName, 150), "last_name", "must not be more than 150 characters long")
	}
	if r.Bio != nil {
		v.Check(v.MaxChars(*r.Bio, 500), "bio", "must not be more than 500 characters long")
	}
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
