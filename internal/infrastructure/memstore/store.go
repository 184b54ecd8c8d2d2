// Package memstore almacén clave-valor en memoria con transacciones
// optimistas: begin, lecturas versionadas, escrituras en buffer y commit que
// falla con ErrConflict si alguna clave leída cambió entretanto.
//
// Implementa inventory.TxRunner y catalog.CatalogSource; sirve como almacén de
// desarrollo (STORE_DRIVER=memory) y en los tests del ledger.
package memstore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrConflict el commit detectó una escritura concurrente sobre una clave leída.
var ErrConflict = errors.New("memstore: conflicto de escritura")

// ErrTxDone la transacción ya terminó.
var ErrTxDone = errors.New("memstore: transacción terminada")

type versioned struct {
	value   any
	version uint64
}

// Store datos confirmados.
type Store struct {
	mu      sync.RWMutex
	data    map[string]versioned
	version uint64
	seq     int64

	injected atomic.Int32
	commits  atomic.Int64
	aborts   atomic.Int64
}

// New crea un store vacío.
func New() *Store {
	return &Store{data: make(map[string]versioned)}
}

// InjectConflicts hace que los próximos n commits fallen con ErrConflict.
// Solo para tests.
func (s *Store) InjectConflicts(n int) { s.injected.Store(int32(n)) }

// Commits cantidad de commits exitosos.
func (s *Store) Commits() int64 { return s.commits.Load() }

// Conflicts cantidad de commits rechazados por conflicto.
func (s *Store) Conflicts() int64 { return s.aborts.Load() }

type pendingAppend struct {
	prefix string
	build  func(seq int64) any
}

// Txn transacción optimista. No es segura para uso concurrente.
type Txn struct {
	s       *Store
	reads   map[string]uint64
	writes  map[string]any
	order   []string
	appends []pendingAppend
	done    bool
}

// Begin abre una transacción.
func (s *Store) Begin() *Txn {
	return &Txn{s: s, reads: make(map[string]uint64), writes: make(map[string]any)}
}

// Read devuelve el valor de key visto por la transacción (incluye sus propias
// escrituras) y registra la versión leída para validarla en el commit.
func (t *Txn) Read(key string) (any, bool) {
	if v, ok := t.writes[key]; ok {
		return v, v != nil
	}
	t.s.mu.RLock()
	cur, ok := t.s.data[key]
	t.s.mu.RUnlock()
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = cur.version
	}
	if !ok {
		return nil, false
	}
	return cur.value, true
}

// Write deja value en el buffer de la transacción.
func (t *Txn) Write(key string, value any) {
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	t.writes[key] = value
}

// Append agrega un registro bajo prefix cuya clave y número de secuencia se
// asignan en el commit. build recibe la secuencia y devuelve el valor a guardar.
func (t *Txn) Append(prefix string, build func(seq int64) any) {
	t.appends = append(t.appends, pendingAppend{prefix: prefix, build: build})
}

// KV par devuelto por Scan.
type KV struct {
	Key   string
	Value any
}

// Scan devuelve los valores confirmados con el prefijo dado, ordenados por clave,
// superpuestos con las escrituras de la transacción. Las claves recorridas no
// se validan en el commit.
func (t *Txn) Scan(prefix string) []KV {
	merged := make(map[string]any)
	t.s.mu.RLock()
	for k, v := range t.s.data {
		if strings.HasPrefix(k, prefix) {
			merged[k] = v.value
		}
	}
	t.s.mu.RUnlock()
	for k, v := range t.writes {
		if strings.HasPrefix(k, prefix) {
			merged[k] = v
		}
	}

	out := make([]KV, 0, len(merged))
	for k, v := range merged {
		out = append(out, KV{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Commit valida las lecturas y aplica escrituras y anexos de forma atómica.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.injected.Load(); n > 0 && s.injected.CompareAndSwap(n, n-1) {
		s.aborts.Add(1)
		return fmt.Errorf("%w: inyectado", ErrConflict)
	}
	for key, seen := range t.reads {
		if s.data[key].version != seen {
			s.aborts.Add(1)
			return fmt.Errorf("%w: %s", ErrConflict, key)
		}
	}

	for _, key := range t.order {
		s.version++
		s.data[key] = versioned{value: t.writes[key], version: s.version}
	}
	for _, a := range t.appends {
		s.seq++
		s.version++
		key := fmt.Sprintf("%s%020d", a.prefix, s.seq)
		s.data[key] = versioned{value: a.build(s.seq), version: s.version}
	}
	s.commits.Add(1)
	return nil
}

// Rollback descarta la transacción. Llamarlo después de Commit es un no-op.
func (t *Txn) Rollback() {
	t.done = true
	t.writes = nil
	t.appends = nil
}
