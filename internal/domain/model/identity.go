// Пакет model — доменные модели Tutoria Files.
package model

// Типы пользователей Tutoria.
const (
	// UserTypeStudent — студент (доступ к файлам не предоставляется).
	UserTypeStudent = "student"
	// UserTypeProfessor — преподаватель (доступ через назначения на курсы).
	UserTypeProfessor = "professor"
	// UserTypeSuperAdmin — глобальный администратор (безусловный доступ).
	UserTypeSuperAdmin = "super_admin"
)

// Identity — проверенная личность вызывающего, восстановленная из claims токена.
// Создаётся на каждый запрос, никогда не сохраняется в БД.
type Identity struct {
	// UserID — идентификатор пользователя (claim sub)
	UserID int64
	// Username — отображаемое имя (claim name)
	Username string
	// Email — электронная почта (claim email)
	Email string
	// UserType — тип пользователя: student, professor, super_admin (claim role/type)
	UserType string
	// UniversityID — университет пользователя (опционально, claim university_id)
	UniversityID *int64
	// IsAdmin — флаг admin-преподавателя с доступом ко всему университету
	IsAdmin bool
}

// IsSuperAdmin сообщает, является ли пользователь глобальным администратором.
func (i *Identity) IsSuperAdmin() bool {
	return i.UserType == UserTypeSuperAdmin
}

// IsProfessor сообщает, является ли пользователь преподавателем.
func (i *Identity) IsProfessor() bool {
	return i.UserType == UserTypeProfessor
}

// IsAdminProfessor сообщает, является ли пользователь admin-преподавателем
// (доступ ко всем модулям своего университета).
func (i *Identity) IsAdminProfessor() bool {
	return i.IsProfessor() && i.IsAdmin
}
