package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payment provider notice kinds
const (
	NoticePurchase       = "purchase"
	NoticeCashoutSettled = "cashout_settled"
)

// NoticeIssuer is the issuer claim every provider notice carries.
const NoticeIssuer = "payment-provider"

// NoticeClaims is a payment provider report about money that moved outside
// the engine. Reference is the provider's own identifier for the event.
type NoticeClaims struct {
	Kind             string `json:"kind"`
	UserID           uint   `json:"user_id"`
	Coins            int64  `json:"coins"`
	Reference        string `json:"reference"`
	CashoutReference string `json:"cashout_reference,omitempty"`
	jwt.RegisteredClaims
}

// SignNotice creates an HS256 notice valid for ttl
func SignNotice(notice NoticeClaims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	notice.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    NoticeIssuer,
		ID:        notice.Reference,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &notice)
	return token.SignedString([]byte(secret))
}

// ParseNotice validates the signature, expiry and issuer of a notice
func ParseNotice(tokenString, secret string) (*NoticeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &NoticeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(NoticeIssuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*NoticeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid notice")
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (n *NoticeClaims) validate() error {
	switch n.Kind {
	case NoticePurchase:
	case NoticeCashoutSettled:
		if n.CashoutReference == "" {
			return fmt.Errorf("cashout notice without cashout reference")
		}
	default:
		return fmt.Errorf("unknown notice kind %q", n.Kind)
	}
	if n.UserID == 0 {
		return fmt.Errorf("notice without user")
	}
	if n.Coins <= 0 {
		return fmt.Errorf("notice coins must be positive")
	}
	if n.Reference == "" {
		return fmt.Errorf("notice without reference")
	}
	return nil
}
