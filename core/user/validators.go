package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/projetogalileu/galileu/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	// password policy
	PasswordMinLen = 6
	pwdMinLenTag   = "pwdminlen"
	pwdMinLenText  = fmt.Sprintf("password must contain at least %d characters", PasswordMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) error {
	if err := validate.RegisterValidation(allRolesTag, allRolesValidation); err != nil {
		return errors.Wrap(err, "registering allroles validation")
	}
	validate.RegisterStructValidation(userStructValidation, NewUser{}, NewPassword{})

	texts := []struct{ tag, text string }{
		{allRolesTag, allRolesText},
		{usernameOrEmailTag, usernameOrEmailText},
		{pwdMinLenTag, pwdMinLenText},
		{pwdNoSpaceTag, pwdNoSpaceText},
		{pwdAttrSimTag, pwdAttrSimText},
	}
	for _, tt := range texts {
		if err := core.RegisterCustomTranslation(validate, translator, tt.tag, tt.text); err != nil {
			return err
		}
	}
	return nil
}

// Custom Validators

// allRolesValidation checks that provided user roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		var known bool
		for _, r := range AllRoles {
			if role == r {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}

// userStructValidation does struct level validation on NewUser and NewPassword structs.
func userStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewUser:
		if len(v.Username) == 0 && len(v.Email) == 0 {
			sl.ReportError(v.Username, "username", "Username", usernameOrEmailTag, "")
			sl.ReportError(v.Email, "email", "Email", usernameOrEmailTag, "")
		}
		if tag := PasswordPolicy(v.Password, v.Name, v.Username, v.Email); tag != "" {
			sl.ReportError(v.Password, "password", "Password", tag, "")
		}
	case NewPassword:
		if tag := PasswordPolicy(v.Password, v.usr.Name, v.usr.Username, v.usr.Email); tag != "" {
			sl.ReportError(v.Password, "password", "Password", tag, "")
		}
	}
}

// PasswordPolicy returns the tag of the first rule pwd breaks, or "":
// - minLen: 6
// - no whitespace
// - no user attrs similarity
func PasswordPolicy(pwd string, attrs ...string) string {
	if pwd == "" {
		return "" // reported by required
	}
	if len([]rune(pwd)) < PasswordMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		attr = strings.ToLower(attr)
		if i := strings.Index(attr, "@"); i > 0 {
			attr = attr[:i]
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).Ratio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
