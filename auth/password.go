package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password123": true, "12345678": true,
	"123456789": true, "qwertyuiop": true, "iloveyou": true, "sunshine": true,
	"11111111": true, "abc12345": true, "letmein1": true, "football": true,
	"baseball": true, "welcome1": true, "admin123": true, "qwerty123": true,
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordProblems lists every strength rule password breaks.
func PasswordProblems(username, password string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		problems = append(problems, "password must contain at least 8 characters")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		problems = append(problems, "password cannot be entirely numeric")
	}
	if username != "" && strings.EqualFold(password, username) {
		problems = append(problems, "password is too similar to the username")
	}
	if commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "password is too common")
	}
	return problems
}
