package serverutils

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// NewJwtMiddleware validates the Bearer token and stores the subject claim in
// ctx.Locals("user_id"). When approvedUserIds is non-empty, the optional
// X-User-ID override header is only honored for the IDs on the list.
func NewJwtMiddleware(secretKey string, approvedUserIds []string) fiber.Handler {
	approved := make(map[string]struct{}, len(approvedUserIds))
	for _, id := range approvedUserIds {
		approved[id] = struct{}{}
	}

	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secretKey), nil
		})

		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		userId := sub
		if override := ctx.Get("X-User-ID"); override != "" && override != sub {
			if _, ok := approved[override]; !ok {
				return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "User ID not approved"})
			}
			userId = override
		}

		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
}

// IssueToken signs a token for the subject. expiryHours <= 0 means the token
// never expires, matching long-lived service credentials.
func IssueToken(secretKey, issuer, subject string, expiryHours int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": issuer,
		"iat": now.Unix(),
	}
	if expiryHours > 0 {
		claims["exp"] = now.Add(time.Duration(expiryHours) * time.Hour).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
