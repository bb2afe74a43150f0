// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"time"
)

func side(isBuy bool) string {
	if isBuy {
		return "buy"
	}
	return "sell"
}

// RecordTrade записывает метрики свопа с учетом контекста
func (c *Collector) RecordTrade(ctx context.Context, isBuy bool, duration time.Duration, success bool) {
	select {
	case <-ctx.Done():
		c.trades.WithLabelValues(side(isBuy), "cancelled").Inc()
		return
	default:
	}

	status := "success"
	if !success {
		status = "failed"
	}
	c.trades.WithLabelValues(side(isBuy), status).Inc()
	c.tradeDuration.WithLabelValues(side(isBuy)).Observe(duration.Seconds())
}

// RecordFee добавляет собранную комиссию
func (c *Collector) RecordFee(lamports uint64) {
	c.fees.Add(float64(lamports))
}

// RecordCurveCreated учитывает запуск новой кривой
func (c *Collector) RecordCurveCreated() {
	c.curves.WithLabelValues("created").Inc()
}

// RecordCurveCompleted учитывает завершение кривой
func (c *Collector) RecordCurveCompleted() {
	c.curves.WithLabelValues("completed").Inc()
}

// UpdateCurveReserves обновляет резервы кривой
func (c *Collector) UpdateCurveReserves(mint string, virtualSol, virtualToken, realSol, realToken uint64) {
	c.reserves.WithLabelValues(mint, "virtual_sol").Set(float64(virtualSol))
	c.reserves.WithLabelValues(mint, "virtual_token").Set(float64(virtualToken))
	c.reserves.WithLabelValues(mint, "real_sol").Set(float64(realSol))
	c.reserves.WithLabelValues(mint, "real_token").Set(float64(realToken))
}

// RecordInvariantFailure учитывает откат мутации
func (c *Collector) RecordInvariantFailure(check string) {
	c.invariantFailure.WithLabelValues(check).Inc()
}

// RecordStoreRetry учитывает повтор операции хранилища
func (c *Collector) RecordStoreRetry(operation string) {
	c.storeRetries.WithLabelValues(operation).Inc()
}

// RecordQuoteLatency записывает время расчета котировки
func (c *Collector) RecordQuoteLatency(isBuy bool, duration time.Duration) {
	c.quoteLatency.WithLabelValues(side(isBuy)).Observe(duration.Seconds())
}
