package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// DocumentSender operación de envío que el BatchSender reparte entre workers.
type DocumentSender interface {
	SendDocument(ctx context.Context, cmd SendCommand) (*SendResult, error)
}

// BatchItemResult resultado de un documento del lote, en la misma posición de la entrada.
type BatchItemResult struct {
	Index  int
	Result *SendResult
	Err    error
}

// BatchSender envía documentos independientes en paralelo sobre un pool ants.
// No hay orden garantizado entre documentos; cada uno sigue su propio pipeline.
type BatchSender struct {
	sender DocumentSender
	pool   *ants.Pool
	log    zerolog.Logger
}

// NewBatchSender crea el pool con size workers (mínimo 1).
func NewBatchSender(sender DocumentSender, size int, log zerolog.Logger) (*BatchSender, error) {
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("crear pool de envío: %w", err)
	}
	return &BatchSender{sender: sender, pool: pool, log: log}, nil
}

// SendAll espera a que todos los documentos terminen. Un documento que no se pudo
// encolar recibe el error de Submit.
func (b *BatchSender) SendAll(ctx context.Context, cmds []SendCommand) []BatchItemResult {
	results := make([]BatchItemResult, len(cmds))
	var wg sync.WaitGroup

	for i := range cmds {
		cmd := cmds[i]
		idx := i
		results[idx].Index = idx
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[idx].Err = err
				return
			}
			res, err := b.sender.SendDocument(ctx, cmd)
			results[idx].Result = res
			results[idx].Err = err
		})
		if err != nil {
			wg.Done()
			results[idx].Err = fmt.Errorf("encolar documento %d: %w", idx, err)
			b.log.Error().Err(err).Int("index", idx).Msg("[SUNAT] no se pudo encolar el documento")
		}
	}
	wg.Wait()
	return results
}

// Release libera el pool.
func (b *BatchSender) Release() {
	b.log.Info().Int("running", b.pool.Running()).Msg("[SUNAT] cerrando pool de envío")
	b.pool.Release()
}

// Capacity workers del pool.
func (b *BatchSender) Capacity() int {
	return b.pool.Cap()
}
