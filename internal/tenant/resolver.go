// Пакет tenant — определение идентификатора тенанта из claims
// идентификационного токена Keycloak.
package tenant

import "strings"

// Префикс роли или scope-токена, несущего ключ тенанта.
const RolePrefix = "tenant:"

// Claims — входные данные для определения тенанта.
type Claims struct {
	// Roles — объединённые роли из realm_access.roles и resource_access.*.roles.
	// Порядок среза определяет приоритет: первая подходящая роль побеждает.
	Roles []string
	// Scope — OAuth scope-строка, разделённая пробелами.
	Scope string
	// Previous — тенант, определённый ранее в этой же сессии.
	Previous string
}

// Resolve возвращает идентификатор тенанта по строгому порядку приоритета:
//  1. первая роль с префиксом tenant: (порядок ролей в claim стабилен);
//  2. первый scope-токен с префиксом tenant:;
//  3. ранее определённый тенант сессии (непрерывность сессии);
//  4. пусто — вызывающий обязан трактовать как отсутствие тенанта.
//
// Две роли с разными тенантами — ошибка конфигурации IdP; резолвер её
// не детектирует, побеждает первая по порядку. Функция детерминирована:
// одинаковые claims всегда дают одинаковый результат.
func Resolve(claims Claims) (string, bool) {
	for _, role := range claims.Roles {
		if key, ok := strings.CutPrefix(role, RolePrefix); ok && key != "" {
			return key, true
		}
	}

	for _, token := range strings.Fields(claims.Scope) {
		if key, ok := strings.CutPrefix(token, RolePrefix); ok && key != "" {
			return key, true
		}
	}

	if claims.Previous != "" {
		return claims.Previous, true
	}

	return "", false
}
