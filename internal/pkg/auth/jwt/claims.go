package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for VaaniArc.
// It includes standard claims required by the JWT specification and custom claims
// necessary for identifying users within the messaging system.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the user's unique identifier (UUID string).
	ID string `json:"id"`

	// Username is the login name of the account, carried for logging and
	// presence payloads without an extra database round trip.
	Username string `json:"username"`
}
