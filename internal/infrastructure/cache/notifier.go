package cache

import "sync"

// Subscription flujo de notificaciones de invalidación para una clave.
type Subscription struct {
	C <-chan InvalidationEvent

	key   string
	ch    chan InvalidationEvent
	store *Store
	once  sync.Once
}

// Notifier devuelve una suscripción a las invalidaciones futuras de key.
// No requiere que exista una entrada. El llamador debe cerrar la suscripción.
func (s *Store) Notifier(key string) *Subscription {
	ch := make(chan InvalidationEvent, s.bufferSize)
	sub := &Subscription{C: ch, key: key, ch: ch, store: s}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	set, ok := s.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		s.subs[key] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Close da de baja la suscripción y cierra C. Es idempotente.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if set, ok := s.subs[sub.key]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(s.subs, sub.key)
			}
		}
		close(sub.ch)
	})
}

// notify entrega el evento sin bloquear; un suscriptor con el buffer lleno pierde
// el evento y se contabiliza en Stats.DroppedNotifications.
func (s *Store) notify(key string, reason Reason) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	set := s.subs[key]
	if len(set) == 0 {
		return
	}
	ev := InvalidationEvent{Key: key, Reason: reason, At: s.now()}
	for sub := range set {
		select {
		case sub.ch <- ev:
		default:
			s.dropped.Add(1)
			s.log.Warn().Str("key", key).Msg("suscriptor lento, notificación descartada")
		}
	}
}
