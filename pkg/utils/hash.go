package utils

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor; tests lower it to bcrypt.MinCost.
var Cost = bcrypt.DefaultCost

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash without truncation.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
