// access.go — вычисление доступа по иерархии владения.
// Строгий allow-list: отсутствие подходящего правила — всегда запрет,
// никогда не ошибка. Сервис только читает цепочку Module → Course →
// University и назначения Professor ↔ Course, никогда не мутирует данные.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
	"github.com/tutoria-chat/tutoria-files/internal/repository"
)

// AccessService — вычисление права доступа к модулям и файлам.
type AccessService struct {
	moduleRepo    repository.ModuleRepository
	fileRepo      repository.FileRepository
	professorRepo repository.ProfessorRepository
	maxCourses    int
	logger        *slog.Logger
}

// NewAccessService создаёт сервис проверки доступа.
// maxCourses — мягкий лимит выборки назначений преподавателя
// (TF_MAX_PROFESSOR_COURSES); при достижении пишется warning.
func NewAccessService(
	moduleRepo repository.ModuleRepository,
	fileRepo repository.FileRepository,
	professorRepo repository.ProfessorRepository,
	maxCourses int,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		moduleRepo:    moduleRepo,
		fileRepo:      fileRepo,
		professorRepo: professorRepo,
		maxCourses:    maxCourses,
		logger:        logger.With(slog.String("component", "access_service")),
	}
}

// CanAccessModule решает, может ли пользователь работать с модулем.
//
// Алгоритм:
//  1. super_admin → разрешено безусловно.
//  2. Модуль не существует → запрещено.
//  3. Admin-преподаватель → разрешено при совпадении университета.
//  4. Преподаватель → разрешено, если курс модуля в его назначениях.
//  5. Любой другой случай (студент, неизвестный тип) → запрещено.
func (s *AccessService) CanAccessModule(ctx context.Context, user *model.Identity, moduleID int64) (bool, error) {
	if user == nil {
		return false, nil
	}

	// 1. Глобальный администратор — без обращения к БД
	if user.IsSuperAdmin() {
		return true, nil
	}

	// 2. Цепочка Module → Course → University
	mc, err := s.moduleRepo.GetWithCourse(ctx, moduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("разрешение цепочки владения модуля %d: %w", moduleID, err)
	}

	return s.canAccessResolved(ctx, user, mc)
}

// canAccessResolved применяет правила 3-5 к уже разрешённому модулю.
func (s *AccessService) canAccessResolved(ctx context.Context, user *model.Identity, mc *model.ModuleWithCourse) (bool, error) {
	// 3. Admin-преподаватель: весь свой университет
	if user.IsAdminProfessor() {
		return user.UniversityID != nil && *user.UniversityID == mc.UniversityID, nil
	}

	// 4. Обычный преподаватель: только назначенные курсы
	if user.IsProfessor() {
		courses, err := s.ProfessorCourseIDs(ctx, user.UserID)
		if err != nil {
			return false, err
		}
		_, assigned := courses[mc.CourseID]
		return assigned, nil
	}

	// 5. Студенты и неизвестные типы
	return false, nil
}

// CanAccessFile решает доступ к файлу делегированием к проверке его модуля.
// Инвариант: CanAccessFile(u, f) == CanAccessModule(u, f.ModuleID).
func (s *AccessService) CanAccessFile(ctx context.Context, user *model.Identity, fileID string) (bool, error) {
	if user != nil && user.IsSuperAdmin() {
		return true, nil
	}

	f, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("получение файла %s для проверки доступа: %w", fileID, err)
	}

	return s.CanAccessModule(ctx, user, f.ModuleID)
}

// ProfessorCourseIDs возвращает множество курсов преподавателя.
// Выборка ограничена maxCourses; достижение границы — не ошибка,
// но логируется как warning (мягкий лимит против fan-out).
func (s *AccessService) ProfessorCourseIDs(ctx context.Context, professorID int64) (map[int64]struct{}, error) {
	ids, err := s.professorRepo.CourseIDs(ctx, professorID, s.maxCourses)
	if err != nil {
		return nil, fmt.Errorf("выборка курсов преподавателя %d: %w", professorID, err)
	}

	if len(ids) == s.maxCourses {
		s.logger.Warn("Достигнут лимит выборки курсов преподавателя",
			slog.Int64("professor_id", professorID),
			slog.Int("limit", s.maxCourses),
		)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
