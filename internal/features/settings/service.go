// Package settings — service.go даёт типизированный доступ к настройкам
// с откатом на значения по умолчанию.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
)

// Service читает настройки при каждом обращении (без кэша).
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Get возвращает значение ключа или значение по умолчанию.
// ok = false, если нет ни того, ни другого.
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if ok {
		return value, true, nil
	}
	def, ok := Defaults[key]
	return def, ok, nil
}

// GetInt возвращает числовую настройку. Нечисловое значение в базе
// логируется и заменяется на def.
func (s *Service) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": value}).Warn("Настройка не является числом, используем значение по умолчанию")
		return def, nil
	}
	return n, nil
}

// GetDecimal — то же для дробных значений (курс обмена).
func (s *Service) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(value, ",", ".")))
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": value}).Warn("Настройка не является числом, используем значение по умолчанию")
		return def, nil
	}
	return d, nil
}

// Set сохраняет значение. Пустой ключ и значение с переводом строки отклоняются.
func (s *Service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \n\t") {
		return fmt.Errorf("некорректный ключ настройки %q", key)
	}
	if err := s.repo.Set(ctx, key, strings.TrimSpace(value)); err != nil {
		return err
	}
	log.WithFields(log.Fields{"key": key, "value": value}).Info("Настройка изменена")
	return nil
}

// All возвращает заданные настройки вместе с дефолтами, которых нет в базе.
func (s *Service) All(ctx context.Context) ([]Entry, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(stored))
	for _, e := range stored {
		seen[e.Key] = true
	}
	out := stored
	for key, value := range Defaults {
		if !seen[key] {
			out = append(out, Entry{Key: key, Value: value, Default: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// TierRoles собирает привязки perm_level_1..4 в карту уровень → роль.
// Незаданные уровни в карту не попадают.
func (s *Service) TierRoles(ctx context.Context) (map[int]string, error) {
	out := make(map[int]string, MaxTier)
	for tier := 1; tier <= MaxTier; tier++ {
		role, ok, err := s.Get(ctx, PermLevelKey(tier))
		if err != nil {
			return nil, err
		}
		role = strings.TrimSpace(role)
		if ok && role != "" {
			out[tier] = role
		}
	}
	return out, nil
}

// RequireChat возвращает ID привязанного чата или ErrConfigurationMissing.
func (s *Service) RequireChat(ctx context.Context, key string) (int64, error) {
	id, err := s.GetInt(ctx, key, 0)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: %s", common.ErrConfigurationMissing, key)
	}
	return id, nil
}

// RequireRole возвращает имя привязанной роли или ErrConfigurationMissing.
func (s *Service) RequireRole(ctx context.Context, key string) (string, error) {
	role, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	role = strings.TrimSpace(role)
	if !ok || role == "" {
		return "", fmt.Errorf("%w: %s", common.ErrConfigurationMissing, key)
	}
	return role, nil
}
