package approval

import (
	"context"

	"serotonyl.ru/economy-bot/internal/features/settings"
)

// defaultApproveTier — если approve_tier не задан.
const defaultApproveTier = 2

// SettingsPolicy читает approve_tier и perm_level_1..4 из настроек.
func SettingsPolicy(s *settings.Service) Policy {
	return func(ctx context.Context) (int, map[int]string, error) {
		tier, err := s.GetInt(ctx, settings.KeyApproveTier, defaultApproveTier)
		if err != nil {
			return 0, nil, err
		}
		roles, err := s.TierRoles(ctx)
		if err != nil {
			return 0, nil, err
		}
		return int(tier), roles, nil
	}
}
