package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

func TestDecideTransitionFirstReserve(t *testing.T) {
	decision, err := DecideTransition(nil, models.StateReservado)
	require.NoError(t, err)
	assert.True(t, decision.Insert)
	assert.Empty(t, decision.DeleteState)
}

func TestDecideTransitionDirectEnroll(t *testing.T) {
	decision, err := DecideTransition(nil, models.StateInscrito)
	require.NoError(t, err)
	assert.True(t, decision.Insert)
	assert.Empty(t, decision.DeleteState)
}

func TestDecideTransitionReserveTwice(t *testing.T) {
	existing := []models.Purchase{{State: models.StateReservado}}
	_, err := DecideTransition(existing, models.StateReservado)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReserved)
}

func TestDecideTransitionReserveToEnroll(t *testing.T) {
	existing := []models.Purchase{{State: models.StateReservado}}
	decision, err := DecideTransition(existing, models.StateInscrito)
	require.NoError(t, err)
	assert.True(t, decision.Insert)
	assert.Equal(t, models.StateReservado, decision.DeleteState)
}

func TestDecideTransitionEnrolledBlocksEverything(t *testing.T) {
	existing := []models.Purchase{{State: models.StateInscrito}}

	_, err := DecideTransition(existing, models.StateReservado)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)

	_, err = DecideTransition(existing, models.StateInscrito)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestDecideTransitionCorruptedPairFavoursEnrolled(t *testing.T) {
	existing := []models.Purchase{
		{State: models.StateReservado},
		{State: models.StateInscrito},
	}
	_, err := DecideTransition(existing, models.StateReservado)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestDecideTransitionInvalidState(t *testing.T) {
	_, err := DecideTransition(nil, models.PurchaseState("pendiente"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStateToRemove(t *testing.T) {
	assert.Equal(t, models.PurchaseState(""), StateToRemove(nil))
	assert.Equal(t, models.StateReservado, StateToRemove([]models.Purchase{{State: models.StateReservado}}))
	assert.Equal(t, models.StateInscrito, StateToRemove([]models.Purchase{{State: models.StateInscrito}}))
	assert.Equal(t, models.StateInscrito, StateToRemove([]models.Purchase{
		{State: models.StateReservado},
		{State: models.StateInscrito},
	}))
}
