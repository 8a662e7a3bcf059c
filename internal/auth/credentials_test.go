package auth

import "testing"

// TestDevVerifier_DevelopmentMode проверяет dev-заглушку в development-режиме.
func TestDevVerifier_DevelopmentMode(t *testing.T) {
	v := NewDevVerifier(true)

	if !v.Verify("dev", "dev") {
		t.Error("пара (dev, dev) должна проходить в development-режиме")
	}
	if v.Verify("dev", "wrong") {
		t.Error("неверный пароль не должен проходить")
	}
	if v.Verify("admin", "dev") {
		t.Error("чужой логин не должен проходить")
	}
}

// TestDevVerifier_ProductionMode проверяет безусловный отказ
// вне development-режима.
func TestDevVerifier_ProductionMode(t *testing.T) {
	v := NewDevVerifier(false)

	if v.Verify("dev", "dev") {
		t.Error("dev-учётные данные не должны проходить вне development-режима")
	}
}

// TestStaticVerifier проверяет сравнение с bcrypt-хэшем.
func TestStaticVerifier(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("ошибка хэширования: %v", err)
	}

	v := NewStaticVerifier(map[string]string{"alice": hash})

	if !v.Verify("alice", "s3cret") {
		t.Error("верный пароль должен проходить")
	}
	if v.Verify("alice", "wrong") {
		t.Error("неверный пароль не должен проходить")
	}
	if v.Verify("bob", "s3cret") {
		t.Error("неизвестный пользователь не должен проходить")
	}
}
