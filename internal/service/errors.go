// Пакет service — бизнес-логика Soul Gateway поверх хранилища
// и внешних коллабораторов (LLM, транскрипция, RAG).
// errors.go — типизированная ошибка сервисного слоя с HTTP-кодом.
package service

import "fmt"

// OpError — ошибка операции сервисного слоя. Несёт HTTP статус-код
// и машиночитаемый код, чтобы handler не разбирал причину заново.
type OpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
