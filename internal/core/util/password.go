package util

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes the plaintext with bcrypt at the given cost. The
// plaintext is never logged or stored.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)

	if err != nil {
		return "", err
	}

	return string(hashed), nil
}

// ComparePassword verifies plaintext against a stored hash in constant time.
func ComparePassword(password, hashed string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
