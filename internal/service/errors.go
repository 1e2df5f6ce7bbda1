// errors.go — ошибки бизнес-логики сервисного слоя.
// Граничный слой (handlers) маппит их в фиксированные HTTP-статусы:
// ErrNotFound → 404, ErrForbidden → 403, ErrInvalidInput → 400,
// ErrStorage и всё прочее → 500.
package service

import "errors"

var (
	// ErrNotFound — модуль или файл не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — вызывающий аутентифицирован, но не авторизован.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInvalidInput — некорректные входные данные
	// (превышен размер файла, пустое имя после санитизации).
	ErrInvalidInput = errors.New("некорректные входные данные")
	// ErrStorage — ошибка ввода-вывода объектного хранилища или БД метаданных.
	ErrStorage = errors.New("ошибка хранилища")
)
