// Package worker runs the asynchronous expense categorization consumer.
package worker

import (
	"context"
	"fmt"
	"time"

	"dividi/internal/amqp"
	"dividi/internal/classify"
	"dividi/internal/log"
)

// CategoryWriter records a classification verdict. The SQLite repository
// satisfies it.
type CategoryWriter interface {
	UpdateExpenseCategory(ctx context.Context, id, category string) (bool, error)
}

// CategorizeWorker consumes categorize messages, asks the classifier for a
// label and writes the verdict back.
type CategorizeWorker struct {
	store      CategoryWriter
	classifier classify.Classifier
	logger     *log.Logger
	timeout    time.Duration
}

func NewCategorizeWorker(store CategoryWriter, classifier classify.Classifier, logger *log.Logger) *CategorizeWorker {
	return &CategorizeWorker{
		store:      store,
		classifier: classifier,
		logger:     logger.WithComponent(log.ComponentWorker),
		timeout:    15 * time.Second,
	}
}

// HandleCategorizeMessage classifies one expense. A classifier failure is
// not returned: requeueing would retry a call that will likely fail again,
// so the expense keeps its fallback category instead.
func (w *CategorizeWorker) HandleCategorizeMessage(ctx context.Context, msg *amqp.ExpenseCategorizeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	category, err := w.classifier.Classify(ctx, msg.Description)
	if err != nil {
		w.logger.WarnContext(ctx, "classification failed, keeping fallback category",
			log.FieldExpenseID, msg.ExpenseID, log.FieldError, err)
		return nil
	}

	ok, err := w.store.UpdateExpenseCategory(ctx, msg.ExpenseID, category)
	if err != nil {
		return fmt.Errorf("update expense category: %w", err)
	}
	if !ok {
		// The expense was deleted between publish and consume.
		w.logger.WarnContext(ctx, "expense gone before categorization",
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}

	w.logger.InfoContext(ctx, "expense categorized",
		log.FieldOperation, log.OpClassify,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldCategory, category)
	return nil
}

// Run consumes until ctx is cancelled.
func (w *CategorizeWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeCategorize(ctx, func(msg *amqp.ExpenseCategorizeMessage) error {
		return w.HandleCategorizeMessage(ctx, msg)
	})
}
