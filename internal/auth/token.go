package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 会话令牌中的声明
type Claims struct {
	ProfileId int64 `json:"pid"`
	jwt.RegisteredClaims
}

// TokenService 签发和校验 HS256 令牌
type TokenService struct {
	signingKey []byte
	issuer     string
}

// NewTokenService 创建令牌服务
func NewTokenService(secret, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(secret), issuer: issuer}
}

// GenerateToken 为 profile 签发令牌。本服务只校验令牌，登录服务用同一密钥和 issuer 调用此方法签发
func (s *TokenService) GenerateToken(profileId int64, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ProfileId: profileId,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", profileId),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ParseToken 校验令牌并返回 profile id
func (s *TokenService) ParseToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.ProfileId <= 0 {
		return 0, errors.New("invalid token")
	}
	return claims.ProfileId, nil
}
