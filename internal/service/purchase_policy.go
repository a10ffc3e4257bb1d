package service

import (
	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

// TransitionDecision is the outcome of applying the purchase state
// machine to a requested state change.
type TransitionDecision struct {
	// Insert is always true on a legal transition: the new record is
	// written first so the student never loses both states.
	Insert bool
	// DeleteState, when non-empty, names the superseded record to
	// remove after the insert is durable.
	DeleteState models.PurchaseState
}

// DecideTransition applies the purchase state machine for one
// (tenant, course, student) given its existing records. Existing may
// hold at most one record per state; the model forbids holding both
// states but corrupted pairs are tolerated and resolved in favour of
// inscrito.
func DecideTransition(existing []models.Purchase, requested models.PurchaseState) (TransitionDecision, error) {
	if !requested.Valid() {
		return TransitionDecision{}, appErrors.Clone(appErrors.ErrValidation, "estado inválido")
	}

	var hasReservado, hasInscrito bool
	for _, p := range existing {
		switch p.State {
		case models.StateReservado:
			hasReservado = true
		case models.StateInscrito:
			hasInscrito = true
		}
	}

	if hasInscrito {
		return TransitionDecision{}, appErrors.ErrAlreadyEnrolled
	}

	switch requested {
	case models.StateReservado:
		if hasReservado {
			return TransitionDecision{}, appErrors.ErrAlreadyReserved
		}
		return TransitionDecision{Insert: true}, nil
	case models.StateInscrito:
		decision := TransitionDecision{Insert: true}
		if hasReservado {
			decision.DeleteState = models.StateReservado
		}
		return decision, nil
	}

	return TransitionDecision{}, appErrors.Clone(appErrors.ErrValidation, "estado inválido")
}

// StateToRemove picks which record an unenroll removes. Inscrito wins
// when both are present. Empty result means nothing to remove.
func StateToRemove(existing []models.Purchase) models.PurchaseState {
	var hasReservado, hasInscrito bool
	for _, p := range existing {
		switch p.State {
		case models.StateReservado:
			hasReservado = true
		case models.StateInscrito:
			hasInscrito = true
		}
	}
	if hasInscrito {
		return models.StateInscrito
	}
	if hasReservado {
		return models.StateReservado
	}
	return ""
}
