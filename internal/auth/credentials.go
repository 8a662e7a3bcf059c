// credentials.go — проверка учётных данных при логине.
// За интерфейсом Verifier: сейчас dev-заглушка и статическая таблица
// пользователей с bcrypt-хэшами, позже сюда встанет реальное хранилище
// пользователей без изменения вызывающего кода.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials — пара логин/пароль не прошла проверку.
var ErrInvalidCredentials = errors.New("неверные учётные данные")

// Verifier — проверка пары логин/пароль. Без побочных эффектов
// и внешних вызовов.
type Verifier interface {
	Verify(username, password string) bool
}

// DevVerifier — учётные данные режима разработки.
// Принимает ровно пару ("dev", "dev") и только при enabled == true
// (environment == development); иначе безусловно false.
// Это документированная заглушка фазы 1, а не механизм безопасности.
type DevVerifier struct {
	enabled bool
}

// NewDevVerifier создаёт DevVerifier.
// enabled — true только в development-окружении.
func NewDevVerifier(enabled bool) *DevVerifier {
	return &DevVerifier{enabled: enabled}
}

// Verify возвращает true только для ("dev", "dev") в development-режиме.
func (v *DevVerifier) Verify(username, password string) bool {
	if !v.enabled {
		return false
	}
	return username == "dev" && password == "dev"
}

// StaticVerifier — проверка по статической таблице bcrypt-хэшей
// из конфигурации. Слот для замены DevVerifier вне development-режима.
type StaticVerifier struct {
	// users — username → bcrypt-хэш пароля
	users map[string]string
}

// NewStaticVerifier создаёт StaticVerifier из таблицы username → bcrypt-хэш.
func NewStaticVerifier(users map[string]string) *StaticVerifier {
	return &StaticVerifier{users: users}
}

// Verify сравнивает пароль с bcrypt-хэшем пользователя.
func (v *StaticVerifier) Verify(username, password string) bool {
	hash, ok := v.users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword возвращает bcrypt-хэш пароля для подготовки таблицы
// пользователей StaticVerifier.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
