package inventory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const tracerName = "github.com/jhoicas/stock-ledger/inventory"

// RetryPolicy reintentos ante domain.ErrStorageTransaction. Cada intento vuelve
// a ejecutar la transacción completa, incluida la verificación de stock.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy 3 intentos con espera lineal de 10ms.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 10 * time.Millisecond}

// Option configura los casos de uso del paquete.
type Option func(*options)

type options struct {
	log    *logger.Logger
	retry  RetryPolicy
	now    func() time.Time
	tracer trace.Tracer
}

func buildOptions(opts []Option) options {
	o := options{
		log:    logger.Nop(),
		retry:  DefaultRetryPolicy,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retry.MaxAttempts < 1 {
		o.retry.MaxAttempts = 1
	}
	return o
}

// WithLogger logger de los casos de uso.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRetry política de reintentos.
func WithRetry(p RetryPolicy) Option { return func(o *options) { o.retry = p } }

// WithClock reloj para timestamps de movimientos (tests).
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithTracer tracer OpenTelemetry; por defecto el global.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// runTx ejecuta la transacción con la política de reintentos. Solo los errores
// de almacenamiento se reintentan; los de negocio vuelven de inmediato.
func (o options) runTx(ctx context.Context, tx TxRunner, op string, fn func(LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		err = tx.Run(ctx, fn)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
		o.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("conflicto de transacción, reintentando")
		if attempt == o.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.retry.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (o options) timestamp() time.Time { return o.now().UTC() }

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
