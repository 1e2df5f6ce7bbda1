// claims.go — маппинг claims токена в доменную модель Identity.
// Чистая функция над плоским набором claims, не зависит от транспорта
// и от того, какая стратегия (удалённая или локальная) добыла claims.
package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tutoria-chat/tutoria-files/internal/domain/model"
)

// Ошибки маппинга claims.
var (
	// ErrMissingSubject — в claims отсутствует или некорректен sub.
	ErrMissingSubject = errors.New("отсутствует claim sub")
)

// MapIdentity восстанавливает Identity из плоского набора claims.
//
// Маппинг полей:
//   - sub           → UserID (обязателен)
//   - name          → Username
//   - email         → Email
//   - role или type → UserType (role приоритетнее)
//   - university_id → UniversityID (опционально)
//   - is_admin      → IsAdmin (опционально)
func MapIdentity(claims map[string]any) (*model.Identity, error) {
	userID, ok := claimInt64(claims, "sub")
	if !ok {
		return nil, ErrMissingSubject
	}

	identity := &model.Identity{
		UserID:   userID,
		Username: claimString(claims, "name"),
		Email:    claimString(claims, "email"),
	}

	identity.UserType = claimString(claims, "role")
	if identity.UserType == "" {
		identity.UserType = claimString(claims, "type")
	}

	if uid, ok := claimInt64(claims, "university_id"); ok {
		identity.UniversityID = &uid
	}

	identity.IsAdmin = claimBool(claims, "is_admin")

	return identity, nil
}

// claimString возвращает строковое значение claim ("" если отсутствует).
func claimString(claims map[string]any, key string) string {
	v, ok := claims[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// claimInt64 возвращает целочисленное значение claim.
// JSON-числа приходят как float64, строковые id — как string.
func claimInt64(claims map[string]any, key string) (int64, bool) {
	v, ok := claims[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// claimBool возвращает булево значение claim (false если отсутствует).
func claimBool(claims map[string]any, key string) bool {
	v, ok := claims[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}
