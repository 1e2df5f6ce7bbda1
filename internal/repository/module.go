package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// ModuleRepository — read-only доступ к модулям с цепочкой владения.
type ModuleRepository interface {
	// GetWithCourse возвращает модуль вместе с университетом его курса
	// одним запросом (JOIN courses). Отсутствующий модуль — ErrNotFound.
	GetWithCourse(ctx context.Context, moduleID int64) (*model.ModuleWithCourse, error)
}

// moduleRepo — реализация ModuleRepository через pgx.
type moduleRepo struct {
	db DBTX
}

// NewModuleRepository создаёт репозиторий модулей.
func NewModuleRepository(db DBTX) ModuleRepository {
	return &moduleRepo{db: db}
}

// GetWithCourse возвращает модуль с цепочкой Module → Course → University.
func (r *moduleRepo) GetWithCourse(ctx context.Context, moduleID int64) (*model.ModuleWithCourse, error) {
	query := `SELECT m.module_id, m.course_id, m.name, m.created_at, c.university_id
		FROM modules m
		JOIN courses c ON c.course_id = m.course_id
		WHERE m.module_id = $1`

	mc := &model.ModuleWithCourse{}
	err := r.db.QueryRow(ctx, query, moduleID).Scan(
		&mc.ID, &mc.CourseID, &mc.Name, &mc.CreatedAt, &mc.UniversityID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения модуля: %w", err)
	}
	return mc, nil
}
