package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                    = errors.New("recurso no encontrado")
	ErrInvalidInput                = errors.New("entrada inválida")
	ErrConflict                    = errors.New("conflicto con el estado actual")
	ErrInsufficientStock           = errors.New("stock insuficiente")
	ErrUnknownVariant              = errors.New("variante desconocida")
	ErrUnknownDistributorInventory = errors.New("inventario de distribuidor inexistente")
	// ErrStorageTransaction marca fallos reintentables del almacén transaccional
	// (conflicto de escritura, deadlock, timeout de commit).
	ErrStorageTransaction = errors.New("fallo de transacción en almacenamiento")
)

// InsufficientStockError detalla qué faltó. DistributorID vacío = ledger central.
type InsufficientStockError struct {
	VariantID     string
	DistributorID string
	Available     int64
	Requested     int64
}

func (e *InsufficientStockError) Error() string {
	if e.DistributorID != "" {
		return fmt.Sprintf("stock insuficiente en distribuidor %s para variante %s: disponible %d, solicitado %d",
			e.DistributorID, e.VariantID, e.Available, e.Requested)
	}
	return fmt.Sprintf("stock insuficiente para variante %s: disponible %d, solicitado %d",
		e.VariantID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransferValidationError solicitud mal formada; se detecta antes de tocar el almacén.
type TransferValidationError struct {
	Reason string
}

func (e *TransferValidationError) Error() string { return "solicitud inválida: " + e.Reason }

func (e *TransferValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid construye un TransferValidationError.
func Invalid(format string, args ...any) error {
	return &TransferValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageTransactionError envuelve el error del driver cuando el commit no fue posible.
type StorageTransactionError struct {
	Op  string
	Err error
}

func (e *StorageTransactionError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageTransaction, e.Err)
}

func (e *StorageTransactionError) Unwrap() error { return e.Err }

func (e *StorageTransactionError) Is(target error) bool { return target == ErrStorageTransaction }

// IsRetryable indica si el error admite reintento automático.
// Los errores de negocio (stock, validación) nunca se reintentan.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageTransaction)
}
