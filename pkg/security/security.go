package security

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Principal is the signed-in user as seen by the journal core.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type TokenClaims struct {
	Appid      string `json:"aid"`
	User       string `json:"u"`
	Email      string `json:"e"`
	ExpireTime int64  `json:"exp"` // 过期时间 时间戳
	NotBefore  int64  `json:"nbf"` // 生效时间 时间戳
}

func NewTokenClaims(appid, userID, email string, expireTime int64) TokenClaims {
	return TokenClaims{
		Appid:      appid,
		User:       userID,
		Email:      email,
		ExpireTime: expireTime,
		NotBefore:  time.Now().Unix() - 1,
	}
}

func (t TokenClaims) Principal() Principal {
	return Principal{ID: t.User, Email: t.Email}
}

func GenerateJWT(info TokenClaims, signBytes []byte) (string, error) {
	claims := jwt.MapClaims{}

	t := reflect.TypeOf(info)
	v := reflect.ValueOf(info)

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		claims[tag] = v.Field(i).Interface()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(signBytes)
	if err != nil {
		return "", err
	}
	return token.SignedString(privateKey)
}

var (
	ErrInvalidJWT = errors.New("invalid token")
	ErrPublicKey  = errors.New("invalid public key")
)

func VerifyToken(tokenString string, key []byte) (*TokenClaims, error) {
	claims, err := ParseJWT(tokenString, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	if claims.ExpireTime < now || claims.NotBefore > now {
		return nil, fmt.Errorf("expired token, %w", ErrInvalidJWT)
	}
	if claims.User == "" {
		return nil, fmt.Errorf("empty principal, %w", ErrInvalidJWT)
	}

	return claims, nil
}

func ParseJWT(tokenString string, key []byte) (*TokenClaims, error) {
	result := &TokenClaims{}
	_, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, %w", token.Header["alg"], ErrInvalidJWT)
		}
		publicKey, err := jwt.ParseRSAPublicKeyFromPEM(key)
		if err != nil {
			return nil, fmt.Errorf("%s, %w", err.Error(), ErrPublicKey)
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	parts := strings.Split(tokenString, ".")
	claimBytes, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidJWT)
	}

	if err = json.Unmarshal(claimBytes, result); err != nil {
		return result, fmt.Errorf("%s, %w", err.Error(), ErrInvalidJWT)
	}
	return result, nil
}
