package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendiente, StatusConfirmado, true},
		{StatusPendiente, StatusEnviado, false},
		{StatusConfirmado, StatusEnPreparacion, true},
		{StatusEnPreparacion, StatusEnviado, true},
		{StatusEnviado, StatusEntregado, true},
		{StatusEnviado, StatusCancelado, true},
		{StatusEntregado, StatusCancelado, false},
		{StatusCancelado, StatusPendiente, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEnums(t *testing.T) {
	assert.True(t, StatusEntregado.IsFinal())
	assert.False(t, Status("X").IsValid())
	assert.True(t, PaymentMethodContraEntrega.IsValid())
	assert.True(t, PaymentStatusReembolsado.IsValid())
	assert.False(t, ReceiptType("TICKET").IsValid())
	assert.Equal(t, "En preparación", StatusEnPreparacion.Label())
}
