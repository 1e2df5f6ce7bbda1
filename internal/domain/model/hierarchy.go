// hierarchy.go — модели иерархии владения: университет → курс → модуль.
package model

import "time"

// University — верхний уровень изоляции (tenant).
type University struct {
	// ID — идентификатор университета
	ID int64
	// Name — название университета
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// Course — курс, принадлежит ровно одному университету.
// Преподаватели назначаются на курсы через таблицу course_professors (many-to-many).
type Course struct {
	// ID — идентификатор курса
	ID int64
	// UniversityID — университет-владелец
	UniversityID int64
	// Name — название курса
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// Module — модуль курса, контейнер для файлов.
type Module struct {
	// ID — идентификатор модуля
	ID int64
	// CourseID — курс-владелец
	CourseID int64
	// Name — название модуля
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// ModuleWithCourse — модуль вместе с цепочкой владения до университета.
// Используется проверкой доступа и генерацией пути хранения:
// обе операции должны знать университет модуля одним запросом к БД.
type ModuleWithCourse struct {
	Module
	// UniversityID — университет, которому принадлежит курс модуля
	UniversityID int64
}
