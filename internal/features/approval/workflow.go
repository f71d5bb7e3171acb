package approval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/metrics"
)

// TxRunner открывает транзакцию (postgres.DB).
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Store — хранилище заявок одного вида.
type Store[P any] interface {
	// TransitionTx переводит pending-заявку в статус to условным UPDATE
	// и возвращает её. Если заявка уже не pending — common.ErrAlreadyProcessed,
	// если её нет — common.ErrSubmissionNotFound.
	TransitionTx(ctx context.Context, tx pgx.Tx, ref Ref, to Status, approverID int64) (*Submission[P], error)
}

// Policy возвращает требуемый уровень прав и привязку уровней к ролям.
// Читается при каждом решении, чтобы смена настроек действовала сразу.
type Policy func(ctx context.Context) (requiredTier int, tierRoles map[int]string, err error)

// Options — поведение конкретного вида заявок.
type Options[P any] struct {
	// Policy — кто может решать. nil означает «только уровень 1 и выше».
	Policy Policy
	// OnApprove выполняется в той же транзакции, что и смена статуса.
	// Ошибка откатывает всё решение.
	OnApprove func(ctx context.Context, tx pgx.Tx, sub *Submission[P]) error
	// AfterCommit вызывается после успешного коммита (любое решение).
	// Ошибки здесь уже не откатят решение, поэтому только логируются.
	AfterCommit func(ctx context.Context, sub *Submission[P]) error
}

// Workflow — общая машина состояний заявок.
type Workflow[P any] struct {
	name  string
	db    TxRunner
	store Store[P]
	opts  Options[P]
}

// New создаёт workflow. name попадает в логи и метрики ("orb", "tax").
func New[P any](name string, db TxRunner, store Store[P], opts Options[P]) *Workflow[P] {
	return &Workflow[P]{name: name, db: db, store: store, opts: opts}
}

// Name — вид заявок.
func (w *Workflow[P]) Name() string {
	return w.name
}

// Authorize проверяет права без изменения состояния.
func (w *Workflow[P]) Authorize(ctx context.Context, approver Approver) error {
	tier, tierRoles := 1, map[int]string(nil)
	if w.opts.Policy != nil {
		var err error
		tier, tierRoles, err = w.opts.Policy(ctx)
		if err != nil {
			return err
		}
	}
	if !members.Authorize(approver.Roles, tier, tierRoles) {
		return common.ErrNotAuthorized
	}
	return nil
}

// Decide принимает решение по заявке.
//
// Порядок: проверка прав (без изменений в базе), затем в одной транзакции
// условный перевод из pending и выплата при одобрении. Два одновременных
// нажатия «Одобрить» дадут одну выплату: второй UPDATE не найдёт pending-строку.
func (w *Workflow[P]) Decide(ctx context.Context, ref Ref, decision Decision, approver Approver) (*Submission[P], error) {
	to, err := decision.Status()
	if err != nil {
		return nil, err
	}

	if err := w.Authorize(ctx, approver); err != nil {
		metrics.RecordDecision(w.name, string(decision), err)
		return nil, err
	}

	var sub *Submission[P]
	err = w.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		sub, err = w.store.TransitionTx(ctx, tx, ref, to, approver.UserID)
		if err != nil {
			return err
		}
		if to == StatusApproved && w.opts.OnApprove != nil {
			if err := w.opts.OnApprove(ctx, tx, sub); err != nil {
				return fmt.Errorf("выплата по заявке %s %s: %w", w.name, ref, err)
			}
		}
		return nil
	})
	metrics.RecordDecision(w.name, string(decision), err)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"workflow":   w.name,
		"submission": sub.ID,
		"status":     sub.Status,
		"approver":   approver.UserID,
	}).Info("Решение по заявке")

	if w.opts.AfterCommit != nil {
		if err := w.opts.AfterCommit(ctx, sub); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"workflow":   w.name,
				"submission": sub.ID,
			}).Error("Ошибка действия после решения по заявке")
		}
	}
	return sub, nil
}

// ValidateProof — общая проверка вложения.
func ValidateProof(proofRef string) error {
	if proofRef == "" {
		return common.ErrNoProofAttached
	}
	return nil
}
