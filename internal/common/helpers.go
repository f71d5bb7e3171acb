// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с датами
// и разбор упоминаний пользователей.
package common

import (
	"fmt"
	"strings"
	"time"
)

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(150) → "150 монет"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizeCoins(balance))
}

// Day обрезает время до начала суток в указанном часовом поясе.
// Дневные счётчики активности и налоговые сроки привязаны к этой дате.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат транзакций и ивентов.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}

// FormatDate форматирует дату в формат "02.01.2006".
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// ParseMention убирает @ из упоминания: "@Vasya" → "Vasya".
// Пустая строка означает, что упоминания нет.
func ParseMention(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "@") {
		return ""
	}
	return strings.TrimPrefix(s, "@")
}

// ParseMentions собирает все @упоминания из аргументов команды без дублей,
// сохраняя порядок.
func ParseMentions(args []string) []string {
	seen := make(map[string]struct{}, len(args))
	var out []string
	for _, a := range args {
		name := ParseMention(a)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
