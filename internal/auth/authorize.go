// authorize.go — Authorization Gate: единственная проверка прав доступа
// к tenant-scoped операциям. Проверка централизована здесь и вызывается
// каждым обработчиком ДО любого обращения к хранилищу: отказ не должен
// раскрывать, существует ли целевой ресурс.
package auth

import "errors"

// ErrForbidden — caller не имеет доступа к поддереву владельца.
// Отказ всегда возвращается как "forbidden", никогда как "not found".
var ErrForbidden = errors.New("доступ к данным этого владельца запрещён")

// Authorize разрешает доступ, если owner_id из claims совпадает
// с целевым владельцем либо роль — admin. Единственный предикат
// авторизации во всём gateway.
func Authorize(claims *Claims, targetOwnerID string) error {
	if claims.OwnerID == targetOwnerID || claims.Role == RoleAdmin {
		return nil
	}
	return ErrForbidden
}
