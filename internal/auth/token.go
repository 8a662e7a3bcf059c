// Пакет auth — токены, учётные данные и проверка прав доступа Soul Gateway.
// token.go — выпуск, декодирование и обновление пар JWT (HS256).
//
// Пара состоит из короткоживущего access токена (минуты) и долгоживущего
// refresh токена (дни). Оба несут одинаковые identity claims и различаются
// тегом kind, поэтому подставить один вместо другого нельзя.
//
// Известное ограничение: refresh не инвалидирует предыдущий refresh токен —
// списка отзыва в этой фазе нет.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ошибки проверки токенов.
var (
	// ErrInvalidToken — подпись невалидна, encoding повреждён,
	// отсутствуют обязательные поля или kind не соответствует операции.
	ErrInvalidToken = errors.New("невалидный токен")
	// ErrExpiredToken — срок действия токена истёк.
	ErrExpiredToken = errors.New("токен просрочен")
)

// Role — роль пользователя. Закрытое множество: сравнение ролей
// проверяется по типизированным константам, а не по произвольным строкам.
type Role string

const (
	// RoleOwner — владелец собственного поддерева хранилища
	RoleOwner Role = "owner"
	// RoleAdmin — административная роль, проходит любую проверку владельца
	RoleAdmin Role = "admin"
)

// Valid проверяет принадлежность роли к закрытому множеству.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Kind токена: access для per-request авторизации, refresh — только
// для выпуска новой пары.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims — identity claims токена. Неизменяемы после выпуска:
// новые claims появляются только через выпуск нового токена.
type Claims struct {
	jwt.RegisteredClaims
	// UserID — идентификатор пользователя
	UserID string `json:"user_id"`
	// OwnerID — идентификатор владельца, к чьему поддереву относится доступ
	OwnerID string `json:"owner_id"`
	// Role — роль пользователя (owner, admin)
	Role Role `json:"role"`
	// Kind — тип токена (access, refresh)
	Kind string `json:"type"`
}

// TokenPair — пара access/refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenService — выпуск и проверка JWT с симметричным секретом.
// Конфигурация неизменяема после создания; часы инъецируются
// для тестируемости проверки expiry.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService создаёт TokenService.
// accessTTL — срок действия access токена (минуты по конфигурации),
// refreshTTL — срок действия refresh токена (дни по конфигурации).
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair выпускает новую пару токенов с одинаковыми identity claims.
func (ts *TokenService) IssuePair(userID, ownerID string, role Role) (*TokenPair, error) {
	accessToken, err := ts.sign(userID, ownerID, role, KindAccess, ts.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("выпуск access токена: %w", err)
	}

	refreshToken, err := ts.sign(userID, ownerID, role, KindRefresh, ts.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("выпуск refresh токена: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// sign подписывает один токен с указанным kind и сроком действия.
func (ts *TokenService) sign(userID, ownerID string, role Role, kind string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(ts.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(ts.now()),
		},
		UserID:  userID,
		OwnerID: ownerID,
		Role:    role,
		Kind:    kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Decode проверяет подпись и наличие обязательных полей (user_id, owner_id).
// Expiry здесь НЕ проверяется — это обязанность Authenticate, чтобы
// логика истечения жила ровно в одном месте, а другие потребители могли
// декодировать токен без неё.
func (ts *TokenService) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return ts.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || claims.OwnerID == "" {
		return nil, fmt.Errorf("%w: отсутствуют обязательные поля", ErrInvalidToken)
	}

	return claims, nil
}

// Authenticate — точка входа для Authorization Gate: Decode плюс
// проверка expiry. Токен с истёкшим сроком отклоняется с ErrExpiredToken.
func (ts *TokenService) Authenticate(tokenString string) (*Claims, error) {
	claims, err := ts.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(ts.now()) {
		return nil, ErrExpiredToken
	}

	return claims, nil
}

// Refresh выпускает новую пару токенов по refresh токену.
// Любая ошибка декодирования или неверный kind — ErrInvalidToken.
// Старый refresh токен при этом не отзывается (нет revocation list).
func (ts *TokenService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := ts.Authenticate(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: ожидался refresh токен", ErrInvalidToken)
	}

	return ts.IssuePair(claims.UserID, claims.OwnerID, claims.Role)
}
