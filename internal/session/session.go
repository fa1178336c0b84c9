// Пакет session — идентификационный контекст запроса.
// Единое представление {пользователь, access token, тенант} для всех
// downstream-обработчиков, независимо от способа аутентификации
// (Bearer JWT или зашифрованный session cookie).
package session

import "context"

// Context — идентификационный контекст одного запроса.
// Downstream-компоненты получают его только на чтение.
type Context struct {
	// Username — preferred_username из токена.
	Username string
	// Email — email пользователя (может быть пуст).
	Email string
	// AccessToken — JWT для передачи брокеру (Bearer).
	AccessToken string
	// TenantID — идентификатор тенанта, определённый резолвером.
	TenantID string
}

// Complete проверяет инвариант «всё или ничего»: пользователь, токен
// и тенант должны присутствовать одновременно. Частичная идентичность
// (например, пользователь без тенанта) не даёт доступа ни к чему —
// иначе запрос мог бы молча уйти в чужую или дефолтную партицию.
func (c *Context) Complete() bool {
	if c == nil {
		return false
	}
	return c.Username != "" && c.AccessToken != "" && c.TenantID != ""
}

// CreatedBy возвращает идентификатор создателя для записи в БД:
// email, если задан, иначе username.
func (c *Context) CreatedBy() string {
	if c == nil {
		return ""
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Username
}

// ctxKey — тип для ключа контекста (избегаем коллизий).
type ctxKey struct{}

// Into помещает идентификационный контекст в context.Context запроса.
func Into(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// From извлекает идентификационный контекст запроса.
// Возвращает nil, если middleware аутентификации не отработал.
func From(ctx context.Context) *Context {
	sc, _ := ctx.Value(ctxKey{}).(*Context)
	return sc
}
