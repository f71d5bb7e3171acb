// Package orbs — service.go: подача заявки и решение по ней.
package orbs

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/approval"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

type Service struct {
	repo     *Repository
	ledger   *economy.Service
	settings *settings.Service
	members  *members.Service
	workflow *approval.Workflow[Payload]
}

func NewService(repo *Repository, ledger *economy.Service, settingsService *settings.Service, memberService *members.Service) *Service {
	s := &Service{
		repo:     repo,
		ledger:   ledger,
		settings: settingsService,
		members:  memberService,
	}
	s.workflow = approval.New[Payload]("orb", repo.DB(), repo, approval.Options[Payload]{
		Policy:    approval.SettingsPolicy(settingsService),
		OnApprove: s.payout,
	})
	return s
}

// Submit создаёт заявку. participants — уже без дублей.
//
// Ошибки: ErrNoProofAttached (нет скриншота), ErrNoParticipants,
// ErrUnconfiguredReward (orb_reward = 0), ErrConfigurationMissing (не задан
// чат модерации). При любой ошибке заявка не создаётся.
func (s *Service) Submit(ctx context.Context, submitterID int64, participants []int64, proofRef string) (*Submission, error) {
	if err := approval.ValidateProof(proofRef); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, common.ErrNoParticipants
	}
	if len(participants) > MaxParticipants {
		return nil, fmt.Errorf("слишком много участников (%d, максимум %d)", len(participants), MaxParticipants)
	}

	amount, err := s.settings.GetInt(ctx, settings.KeyOrbReward, 0)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, common.ErrUnconfiguredReward
	}
	if _, err := s.settings.RequireChat(ctx, settings.KeyReviewChatID); err != nil {
		return nil, err
	}

	sub := &Submission{
		SubmitterID: submitterID,
		Amount:      amount,
		ProofRef:    proofRef,
		Payload:     Payload{Participants: participants},
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"submission":   sub.ID,
		"user_id":      submitterID,
		"participants": len(participants),
		"amount":       amount,
	}).Info("Новая заявка на орб")
	return sub, nil
}

// ReviewChat — чат, куда уходят заявки на модерацию.
func (s *Service) ReviewChat(ctx context.Context) (int64, error) {
	return s.settings.RequireChat(ctx, settings.KeyReviewChatID)
}

// AttachMessage запоминает пост с заявкой в чате модерации.
func (s *Service) AttachMessage(ctx context.Context, id, chatID int64, messageID int) error {
	return s.repo.SetMessageRef(ctx, id, approval.MessageRef(chatID, messageID))
}

// Decide — решение модератора. Роли модератора читаются из базы.
func (s *Service) Decide(ctx context.Context, ref approval.Ref, decision approval.Decision, approverID int64) (*Submission, error) {
	roles, err := s.members.Roles(ctx, approverID)
	if err != nil {
		return nil, err
	}
	return s.workflow.Decide(ctx, ref, decision, approval.Approver{UserID: approverID, Roles: roles})
}

// Pending — нерешённые заявки.
func (s *Service) Pending(ctx context.Context, limit int) ([]*Submission, error) {
	return s.repo.Pending(ctx, limit)
}

// payout делит сумму поровну. Выполняется в транзакции решения:
// если начисление кому-то упадёт, заявка останется pending.
func (s *Service) payout(ctx context.Context, tx pgx.Tx, sub *Submission) error {
	share := Share(sub.Amount, len(sub.Payload.Participants))
	if share == 0 {
		return nil
	}
	description := fmt.Sprintf("Орб #%d", sub.ID)
	// Счета блокируются по возрастанию id, как в переводах
	ids := slices.Clone(sub.Payload.Participants)
	slices.Sort(ids)
	for _, userID := range ids {
		if _, err := s.ledger.CreditTx(ctx, tx, userID, share, economy.KindOrbReward, description); err != nil {
			return err
		}
	}
	return nil
}
