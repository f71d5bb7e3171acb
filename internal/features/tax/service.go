package tax

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/approval"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

type Service struct {
	repo     *Repository
	settings *settings.Service
	members  *members.Service
	workflow *approval.Workflow[Payload]
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo *Repository, settingsService *settings.Service, memberService *members.Service, loc *time.Location) *Service {
	s := &Service{
		repo:     repo,
		settings: settingsService,
		members:  memberService,
		loc:      loc,
		now:      time.Now,
	}
	s.workflow = approval.New[Payload]("tax", repo.DB(), repo, approval.Options[Payload]{
		Policy:      approval.SettingsPolicy(settingsService),
		OnApprove:   s.markPaid,
		AfterCommit: s.restoreMember,
	})
	return s
}

// Amount — текущая ставка налога. 0 — налог не настроен.
func (s *Service) Amount(ctx context.Context) (int64, error) {
	return s.settings.GetInt(ctx, settings.KeyTaxAmount, 0)
}

// Submit создаёт заявку об оплате. Ошибки как у орбов: нет скриншота,
// не задана ставка или чат модерации.
func (s *Service) Submit(ctx context.Context, userID int64, proofRef string) (*Submission, error) {
	if err := approval.ValidateProof(proofRef); err != nil {
		return nil, err
	}
	amount, err := s.Amount(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, common.ErrUnconfiguredReward
	}
	if _, err := s.settings.RequireChat(ctx, settings.KeyReviewChatID); err != nil {
		return nil, err
	}

	sub := &Submission{SubmitterID: userID, Amount: amount, ProofRef: proofRef}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"submission": sub.ID, "user_id": userID, "amount": amount}).
		Info("Новая заявка об оплате налога")
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

// Decide — решение модератора.
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

// Status — налоговая запись участника, nil если он ни разу не платил.
func (s *Service) Status(ctx context.Context, userID int64) (*Record, error) {
	return s.repo.GetRecord(ctx, userID)
}

// Sweep помечает должниками тех, чей срок прошёл, и меняет им роли.
// Без привязанных ролей ничего не трогает.
func (s *Service) Sweep(ctx context.Context) ([]int64, error) {
	memberRole, delinquentRole, err := s.roles(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.MarkOverdue(ctx, common.Day(s.now(), s.loc))
	if err != nil {
		return nil, err
	}
	for _, userID := range ids {
		if _, err := s.members.Reconcile(ctx, userID, memberRole, delinquentRole); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось выдать роль должника")
		}
	}
	if len(ids) > 0 {
		log.WithField("count", len(ids)).Info("Налоговые должники отмечены")
	}
	return ids, nil
}

// markPaid — выплата по одобренной заявке: продление записи.
// Роли проверяются здесь, чтобы без настроек решение откатилось целиком.
func (s *Service) markPaid(ctx context.Context, tx pgx.Tx, sub *Submission) error {
	if _, _, err := s.roles(ctx); err != nil {
		return err
	}
	return s.repo.MarkPaidTx(ctx, tx, sub.SubmitterID, NextDue(common.Day(s.now(), s.loc)))
}

// restoreMember снимает роль должника после коммита.
func (s *Service) restoreMember(ctx context.Context, sub *Submission) error {
	if sub.Status != approval.StatusApproved {
		return nil
	}
	memberRole, delinquentRole, err := s.roles(ctx)
	if err != nil {
		return err
	}
	_, err = s.members.Reconcile(ctx, sub.SubmitterID, delinquentRole, memberRole)
	if errors.Is(err, common.ErrUserNotFound) {
		log.WithField("user_id", sub.SubmitterID).Warn("Плательщик налога не найден среди участников")
		return nil
	}
	return err
}

func (s *Service) roles(ctx context.Context) (memberRole, delinquentRole string, err error) {
	if memberRole, err = s.settings.RequireRole(ctx, settings.KeyMemberRole); err != nil {
		return "", "", err
	}
	if delinquentRole, err = s.settings.RequireRole(ctx, settings.KeyDelinquentRole); err != nil {
		return "", "", err
	}
	return memberRole, delinquentRole, nil
}
