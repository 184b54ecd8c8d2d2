// Package messaging difunde las invalidaciones de caché a otras instancias por
// Kafka. Cada instancia publica las claves que su router expulsó y consume las
// de las demás, aplicándolas solo a su caché local.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// InvalidationMessage cuerpo publicado en el tópico.
type InvalidationMessage struct {
	Origin   string    `json:"origin"`
	Keys     []string  `json:"keys"`
	Prefixes []string  `json:"prefixes,omitempty"`
	At       time.Time `json:"at"`
}

// Writer subconjunto de *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader subconjunto de *kafka.Reader.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewWriter productor para el tópico de invalidaciones.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// GroupID grupo de consumo de la instancia. Cada instancia necesita su propio
// grupo para recibir todas las invalidaciones: KAFKA_GROUP_ID tiene prioridad
// y si falta se usa "<app>-<origin>".
//
// Con un origin aleatorio cada arranque crea un grupo nuevo y el anterior queda
// huérfano en el broker hasta que expiran sus offsets (offsets.retention.minutes).
// Fijar KAFKA_INSTANCE_ID por instancia evita acumularlos.
func GroupID(cfg config.KafkaConfig, appName, origin string) string {
	if cfg.GroupID != "" {
		return cfg.GroupID
	}
	return appName + "-" + origin
}

// NewReader consumidor del tópico con el grupo de GroupID.
func NewReader(cfg config.KafkaConfig, appName, origin string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     GroupID(cfg, appName, origin),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
}

var _ invalidation.Broadcaster = (*Broadcaster)(nil)

// Broadcaster publica invalidaciones locales.
type Broadcaster struct {
	w      Writer
	origin string
	now    func() time.Time
}

// NewBroadcaster origin identifica a esta instancia.
func NewBroadcaster(w Writer, origin string) *Broadcaster {
	return &Broadcaster{w: w, origin: origin, now: time.Now}
}

// Publish envía un mensaje con las claves y prefijos expulsados.
func (b *Broadcaster) Publish(ctx context.Context, keys, prefixes []string) error {
	if len(keys) == 0 && len(prefixes) == 0 {
		return nil
	}
	body, err := json.Marshal(InvalidationMessage{Origin: b.origin, Keys: keys, Prefixes: prefixes, At: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := b.w.WriteMessages(ctx, kafka.Message{Key: []byte(b.origin), Value: body}); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Consumer aplica a la caché local las invalidaciones de otras instancias.
// No vuelve a publicarlas.
type Consumer struct {
	r      Reader
	cache  invalidation.Cache
	origin string
	log    *logger.Logger
}

func NewConsumer(r Reader, cache invalidation.Cache, origin string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{r: r, cache: cache, origin: origin, log: log.Component("kafka-invalidation")}
}

// Run lee hasta que ctx se cancela. Los errores de lectura se registran y el
// bucle continúa.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().Str("origin", c.origin).Msg("consumidor de invalidaciones iniciado")
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.log.Info().Msg("consumidor de invalidaciones detenido")
				return nil
			}
			c.log.Error().Err(err).Msg("error leyendo de Kafka")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if err := c.Handle(msg); err != nil {
			c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("mensaje de invalidación descartado")
		}
	}
}

// Handle aplica un mensaje. Los mensajes propios se ignoran.
func (c *Consumer) Handle(msg kafka.Message) error {
	var m InvalidationMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return fmt.Errorf("decode invalidation: %w", err)
	}
	if m.Origin == c.origin {
		return nil
	}
	for _, k := range m.Keys {
		c.cache.Invalidate(k)
	}
	for _, p := range m.Prefixes {
		c.cache.InvalidatePattern(p)
	}
	c.log.Debug().Str("from", m.Origin).Int("keys", len(m.Keys)).Int("prefixes", len(m.Prefixes)).Msg("invalidación remota aplicada")
	return nil
}

// Close cierra el lector.
func (c *Consumer) Close() error { return c.r.Close() }
