package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 5

// SyncTask sincroniza um card. Cada task é independente das outras.
type SyncTask struct {
	CardID string
	Run    func(ctx context.Context) (CardOutcome, error)
}

// SyncSummary é o resumo devolvido pelos endpoints de sincronização.
type SyncSummary struct {
	Total         int   `json:"total"`
	Processed     int   `json:"processed"`
	Created       int   `json:"created"`
	Updated       int   `json:"updated"`
	Deleted       int   `json:"deleted"`
	Errors        int   `json:"errors"`
	Skipped       int   `json:"skipped"`
	Truncated     bool  `json:"truncated"`
	TimeElapsedMs int64 `json:"timeElapsedMs"`
}

func (s *SyncSummary) record(outcome CardOutcome, err error) {
	s.Processed++
	if err != nil {
		s.Errors++
		return
	}
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeDeleted:
		s.Deleted++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// BatchExecutor roda tasks em lotes de tamanho Concurrency, esperando o lote
// inteiro antes do próximo. Nenhum lote novo começa depois do Deadline, contado
// a partir da chamada de Run; tasks em andamento nunca são interrompidas.
type BatchExecutor struct {
	Concurrency int
	Deadline    time.Duration
	Log         *zap.Logger
	now         func() time.Time
}

func NewBatchExecutor(concurrency int, deadline time.Duration, log *zap.Logger) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchExecutor{
		Concurrency: concurrency,
		Deadline:    deadline,
		Log:         log,
		now:         time.Now,
	}
}

func (e *BatchExecutor) Run(ctx context.Context, tasks []SyncTask) SyncSummary {
	return e.RunFrom(ctx, e.now(), tasks)
}

// RunFrom conta o deadline a partir de start, para incluir o tempo gasto
// buscando o estado do board antes das tasks.
func (e *BatchExecutor) RunFrom(ctx context.Context, start time.Time, tasks []SyncTask) SyncSummary {
	summary := SyncSummary{Total: len(tasks)}
	var mu sync.Mutex

	for offset := 0; offset < len(tasks); offset += e.Concurrency {
		if e.Deadline > 0 && e.now().Sub(start) >= e.Deadline {
			summary.Truncated = true
			e.Log.Warn("deadline atingido, interrompendo sincronização",
				zap.Int("processed", summary.Processed),
				zap.Int("remaining", len(tasks)-offset),
				zap.Duration("deadline", e.Deadline))
			break
		}
		if ctx.Err() != nil {
			summary.Truncated = true
			e.Log.Warn("contexto cancelado, interrompendo sincronização",
				zap.Int("processed", summary.Processed),
				zap.Error(ctx.Err()))
			break
		}

		end := offset + e.Concurrency
		if end > len(tasks) {
			end = len(tasks)
		}

		var g errgroup.Group
		for _, task := range tasks[offset:end] {
			task := task
			g.Go(func() error {
				outcome, err := runTask(ctx, task)
				if err != nil {
					e.Log.Error("falha ao sincronizar card",
						zap.String("card_id", task.CardID),
						zap.Error(err))
				}
				mu.Lock()
				summary.record(outcome, err)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	summary.TimeElapsedMs = e.now().Sub(start).Milliseconds()
	return summary
}

// runTask isola panics de uma task para que não derrubem as irmãs.
func runTask(ctx context.Context, task SyncTask) (outcome CardOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic ao sincronizar card %s: %v", task.CardID, r)
		}
	}()
	return task.Run(ctx)
}
