// Пакет filename — нормализация недоверенных имён файлов.
// Имя от клиента используется только как отображаемое; путь хранения
// генерируется отдельно и никогда не содержит пользовательский ввод.
package filename

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxLength — максимальная длина результата (база + расширение).
const MaxLength = 255

// Sanitize нормализует имя файла к безопасному набору символов.
//
// Правила:
//   - расширение отделяется от базы и сохраняется как есть;
//   - пробелы в базе заменяются на подчёркивания;
//   - из базы удаляются все символы вне [A-Za-z0-9_-.];
//   - база усекается так, чтобы len(база)+len(расширение) <= MaxLength;
//   - пустой или состоящий из пробелов ввод даёт пустую строку
//     (вызывающий код обязан трактовать её как ошибку ввода).
//
// Детерминированная чистая функция без побочных эффектов.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	// Пробелы → подчёркивания
	base = strings.ReplaceAll(base, " ", "_")

	// Удаляем всё вне безопасного набора
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if isSafe(r) {
			b.WriteRune(r)
		}
	}
	base = b.String()

	// Усечение базы с учётом длины расширения
	if len(base)+len(ext) > MaxLength {
		cut := MaxLength - len(ext)
		if cut < 0 {
			// Патологический случай: само расширение длиннее лимита.
			// Расширение сохраняется как есть и может содержать
			// многобайтовые руны, усекаем по границе руны.
			base = ""
			ext = truncate(ext, MaxLength)
		} else {
			base = base[:cut]
		}
	}

	if base == "" && ext == "" {
		return ""
	}

	return base + ext
}

// Ext возвращает расширение имени файла с точкой ("" если его нет).
func Ext(name string) string {
	return filepath.Ext(strings.TrimSpace(name))
}

// truncate возвращает не более max байт строки s,
// не разрезая многобайтовую руну.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// isSafe сообщает, входит ли символ в безопасный набор [A-Za-z0-9_-.].
func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.':
		return true
	}
	return false
}
