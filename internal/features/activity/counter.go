// Package activity — counter.go решает, засчитывается ли сообщение как активность.
// Короткие реплики и команды наград не приносят: это отсекает спам «+», «ок».
package activity

import "strings"

// MinWords — минимум слов в сообщении для награды.
const MinWords = 3

// CountWords подсчитывает количество слов в тексте.
//
// Примеры:
//
//	CountWords("привет как дела") → 3
//	CountWords("  пробелы  лишние  ") → 2
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Qualifies проверяет, подходит ли сообщение для награды за чат:
//   - не команда (не начинается с !, . или /)
//   - минимум MinWords слов
func Qualifies(text string) bool {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "!") || strings.HasPrefix(text, ".") || strings.HasPrefix(text, "/") {
		return false
	}
	return CountWords(text) >= MinWords
}
