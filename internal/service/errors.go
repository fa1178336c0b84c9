// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoTenant — тенант не определён и ключ по умолчанию не настроен.
	ErrNoTenant = errors.New("тенант не определён")
	// ErrMissingConfiguration — операция требует ненастроенный
	// параметр конфигурации.
	ErrMissingConfiguration = errors.New("отсутствует конфигурация")
)
