package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProfessorRepository — read-only доступ к назначениям преподавателей на курсы.
type ProfessorRepository interface {
	// CourseIDs возвращает идентификаторы курсов преподавателя.
	// limit — верхняя граница выборки (защита от неограниченного fan-out);
	// вызывающий код трактует len(result) == limit как достижение границы.
	CourseIDs(ctx context.Context, professorID int64, limit int) ([]int64, error)
}

// professorRepo — реализация ProfessorRepository через pgx.
type professorRepo struct {
	db DBTX
}

// NewProfessorRepository создаёт репозиторий назначений преподавателей.
func NewProfessorRepository(db DBTX) ProfessorRepository {
	return &professorRepo{db: db}
}

// CourseIDs возвращает курсы, на которые назначен преподаватель.
func (r *professorRepo) CourseIDs(ctx context.Context, professorID int64, limit int) ([]int64, error) {
	query := `SELECT course_id FROM course_professors WHERE professor_id = $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, professorID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки курсов преподавателя: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения курсов преподавателя: %w", err)
	}
	return ids, nil
}
