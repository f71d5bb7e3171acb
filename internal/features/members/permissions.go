package members

import "strings"

// Authorize проверяет уровень прав без обращения к базе и к Telegram.
//
// tierToRole связывает уровень (1..4) с именем роли. Пользователь проходит,
// если держит роль любого уровня не ниже requiredTier: модератор
// четвёртого уровня может всё, что может хелпер второго.
// requiredTier <= 0 означает «без ограничений».
func Authorize(actorRoles []string, requiredTier int, tierToRole map[int]string) bool {
	if requiredTier <= 0 {
		return true
	}
	for tier, role := range tierToRole {
		if tier < requiredTier || role == "" {
			continue
		}
		if HasRole(actorRoles, role) {
			return true
		}
	}
	return false
}

// HasRole ищет роль в списке без учёта регистра.
func HasRole(roles []string, role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// reconcileRoles убирает роль remove и добавляет add, сохраняя порядок
// остальных ролей. Пустые remove/add пропускаются.
func reconcileRoles(roles []string, remove, add string) []string {
	out := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		if remove != "" && strings.EqualFold(r, remove) {
			continue
		}
		out = append(out, r)
	}
	if add != "" && !HasRole(out, add) {
		out = append(out, add)
	}
	return out
}
