// Package cache implementa el Cache Store en memoria: TTL por prefijo,
// invalidación por clave o patrón con notificación por clave, y escritura
// optimista con rollback compensatorio.
//
// Las lecturas no toman locks (sync.Map). Las invalidaciones se procesan en una
// cola de trabajos: quien encuentra la cola ociosa la drena hasta vaciarla y los
// demás llamadores esperan a que su trabajo termine. Nunca se descarta una
// solicitud ni se recurre por la pila.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Factory produce el valor de una clave ausente. Sus errores no se cachean.
type Factory = func(ctx context.Context) (any, error)

// Reason motivo de una notificación.
type Reason string

const (
	ReasonInvalidated Reason = "invalidated"
	ReasonPattern     Reason = "pattern"
	ReasonRollback    Reason = "rollback"
)

// InvalidationEvent lo que recibe un suscriptor.
type InvalidationEvent struct {
	Key    string
	Reason Reason
	At     time.Time
}

// Target destino de una regla de cascada: clave exacta o prefijo.
type Target struct {
	Key    string
	Prefix bool
}

// Cascade devuelve las claves dependientes de key que deben invalidarse con ella.
// Se ejecuta dentro de la pasada de invalidación: no debe llamar a Invalidate
// ni a InvalidatePattern del mismo Store, porque esperarían a la pasada en
// curso y la bloquearían para siempre.
type Cascade func(key string) []Target

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) > e.ttl
}

type job struct {
	target  Target
	reason  Reason
	evicted int
	done    chan struct{}
}

// Store caché en memoria segura para uso concurrente.
type Store struct {
	entries sync.Map // string -> *entry
	gens    sync.Map // string -> *atomic.Uint64
	epoch   atomic.Uint64
	flight  singleflight.Group

	rules      []TTLRule
	defaultTTL time.Duration
	now        func() time.Time
	cascade    Cascade
	bufferSize int
	log        *logger.Logger

	subMu sync.Mutex
	subs  map[string]map[*Subscription]struct{}

	qMu     sync.Mutex
	queue   []*job
	running bool

	hits, misses, evictions, invalidations, dropped atomic.Int64
}

// Option configura el Store.
type Option func(*Store)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithDefaultTTL TTL cuando ninguna regla coincide. <= 0 significa sin expiración.
func WithDefaultTTL(d time.Duration) Option { return func(s *Store) { s.defaultTTL = d } }

// WithTTLRules tabla {prefijo -> duración}.
func WithTTLRules(rules []TTLRule) Option {
	return func(s *Store) { s.rules = append([]TTLRule(nil), rules...) }
}

// WithCascade reglas de invalidación en cascada. c debe ser pura (ver Cascade).
func WithCascade(c Cascade) Option { return func(s *Store) { s.cascade = c } }

// WithNotifyBuffer capacidad del canal de cada suscriptor.
func WithNotifyBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithLogger logger del store.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New crea el store.
func New(opts ...Option) *Store {
	s := &Store{
		defaultTTL: 5 * time.Minute,
		now:        time.Now,
		bufferSize: 64,
		log:        logger.Nop(),
		subs:       make(map[string]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("cache")
	return s
}

func (s *Store) gen(key string) *atomic.Uint64 {
	if g, ok := s.gens.Load(key); ok {
		return g.(*atomic.Uint64)
	}
	g, _ := s.gens.LoadOrStore(key, new(atomic.Uint64))
	return g.(*atomic.Uint64)
}

func (s *Store) lookup(key string) (any, bool) {
	raw, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := raw.(*entry)
	if e.expired(s.now()) {
		s.entries.CompareAndDelete(key, e)
		return nil, false
	}
	return e.value, true
}

// GetCached devuelve el valor vigente de key o lo produce con factory.
// Llamadas concurrentes con la misma clave ausente comparten una sola ejecución
// de factory. Si key se invalida mientras factory corre, el resultado se
// devuelve pero no se guarda.
func (s *Store) GetCached(ctx context.Context, key string, factory Factory) (any, error) {
	if v, ok := s.lookup(key); ok {
		s.hits.Add(1)
		return v, nil
	}
	s.misses.Add(1)

	gen := s.gen(key).Load()
	epoch := s.epoch.Load()
	v, err, _ := s.flight.Do(key, func() (any, error) {
		if v, ok := s.lookup(key); ok {
			return v, nil
		}
		val, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		if s.gen(key).Load() == gen && s.epoch.Load() == epoch {
			s.entries.Store(key, &entry{value: val, storedAt: s.now(), ttl: s.TTLFor(key)})
		}
		return val, nil
	})
	return v, err
}

// Fetch versión tipada de GetCached.
func Fetch[T any](ctx context.Context, s *Store, key string, factory func(context.Context) (T, error)) (T, error) {
	v, err := s.GetCached(ctx, key, func(ctx context.Context) (any, error) {
		return factory(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// HasCache indica si hay una entrada vigente para key.
func (s *Store) HasCache(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// Invalidate expulsa key y notifica siempre a sus suscriptores, haya o no
// entrada viva. Solo una entrada viva cuenta en Stats().Evictions.
func (s *Store) Invalidate(key string) {
	s.submit(&job{target: Target{Key: key}, reason: ReasonInvalidated})
}

// InvalidatePattern expulsa y notifica toda clave con el prefijo dado.
// Devuelve cuántas entradas se expulsaron (sin contar cascadas).
func (s *Store) InvalidatePattern(prefix string) int {
	return s.submit(&job{target: Target{Key: prefix, Prefix: true}, reason: ReasonPattern})
}

func (s *Store) submit(j *job) int {
	j.done = make(chan struct{})
	s.invalidations.Add(1)

	s.qMu.Lock()
	s.queue = append(s.queue, j)
	if s.running {
		s.qMu.Unlock()
		<-j.done
		return j.evicted
	}
	s.running = true
	s.qMu.Unlock()

	s.drain()
	<-j.done
	return j.evicted
}

func (s *Store) drain() {
	for {
		s.qMu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.qMu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.qMu.Unlock()

		j.evicted = s.process(j)
		close(j.done)
	}
}

// process resuelve un trabajo y sus cascadas con una lista de pendientes;
// cada clave o prefijo se visita como mucho una vez por trabajo.
func (s *Store) process(j *job) int {
	visited := map[Target]struct{}{j.target: {}}
	pending := []Target{j.target}
	evicted := 0
	root := true

	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]

		var touched []string
		if t.Prefix {
			touched = s.evictPrefix(t.Key, j.reason)
			if root {
				evicted = len(touched)
			}
		} else {
			// Una clave exacta se notifica aunque no hubiera entrada viva:
			// el suscriptor pudo leer el valor antes de que expirara.
			if s.evictKey(t.Key) && root {
				evicted = 1
			}
			s.notify(t.Key, j.reason)
			touched = []string{t.Key}
		}
		root = false

		if s.cascade == nil {
			continue
		}
		for _, k := range touched {
			for _, next := range s.cascade(k) {
				if _, ok := visited[next]; ok {
					continue
				}
				visited[next] = struct{}{}
				pending = append(pending, next)
			}
		}
	}
	return evicted
}

// evictKey elimina key y devuelve si había una entrada viva. Solo las
// entradas vivas cuentan como desalojo.
func (s *Store) evictKey(key string) bool {
	s.gen(key).Add(1)
	s.flight.Forget(key)
	raw, loaded := s.entries.LoadAndDelete(key)
	if !loaded || raw.(*entry).expired(s.now()) {
		return false
	}
	s.evictions.Add(1)
	return true
}

func (s *Store) evictPrefix(prefix string, reason Reason) []string {
	s.epoch.Add(1)
	var keys []string
	s.entries.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	out := keys[:0]
	for _, k := range keys {
		if s.evictKey(k) {
			s.notify(k, reason)
			out = append(out, k)
		}
	}
	return out
}

// WriteThrough aplica tentative en caché antes de que commit confirme en el
// almacén. Si commit falla se restaura la entrada previa (o se elimina si no
// había) y se notifica a los suscriptores la corrección.
func (s *Store) WriteThrough(ctx context.Context, key string, tentative any, commit func(context.Context) error) error {
	prev, hadPrev := s.entries.Load(key)
	tent := &entry{value: tentative, storedAt: s.now(), ttl: s.TTLFor(key)}

	s.gen(key).Add(1)
	s.flight.Forget(key)
	s.entries.Store(key, tent)

	if err := commit(ctx); err != nil {
		s.gen(key).Add(1)
		// Solo se restaura si nadie reemplazó la entrada tentativa entretanto.
		if hadPrev {
			s.entries.CompareAndSwap(key, tent, prev)
		} else {
			s.entries.CompareAndDelete(key, tent)
		}
		s.notify(key, ReasonRollback)
		s.log.Warn().Err(err).Str("key", key).Msg("escritura optimista revertida")
		return err
	}
	return nil
}

// StartJanitor barre periódicamente las entradas expiradas. No notifica.
// Termina cuando ctx se cancela.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					s.log.Debug().Int("removed", n).Msg("entradas expiradas eliminadas")
				}
			}
		}
	}()
}

// Sweep elimina las entradas expiradas y devuelve cuántas quitó.
func (s *Store) Sweep() int {
	now := s.now()
	n := 0
	s.entries.Range(func(k, v any) bool {
		if v.(*entry).expired(now) && s.entries.CompareAndDelete(k, v) {
			n++
		}
		return true
	})
	return n
}

// Stats contadores del store.
type Stats struct {
	Size                 int   `json:"size"`
	Hits                 int64 `json:"hits"`
	Misses               int64 `json:"misses"`
	Evictions            int64 `json:"evictions"`
	Invalidations        int64 `json:"invalidations"`
	DroppedNotifications int64 `json:"dropped_notifications"`
}

func (s *Store) Stats() Stats {
	size := 0
	s.entries.Range(func(_, _ any) bool { size++; return true })
	return Stats{
		Size:                 size,
		Hits:                 s.hits.Load(),
		Misses:               s.misses.Load(),
		Evictions:            s.evictions.Load(),
		Invalidations:        s.invalidations.Load(),
		DroppedNotifications: s.dropped.Load(),
	}
}
