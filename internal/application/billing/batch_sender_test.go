package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendDocument(ctx context.Context, cmd billing.SendCommand) (*billing.SendResult, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*billing.SendResult)
	return res, args.Error(1)
}

func withCorrelative(c string) billing.SendCommand {
	raw := invoiceRaw()
	raw.Correlative = domsunat.FlexString(c)
	return billing.SendCommand{CompanyID: companyID, Document: raw}
}

func TestBatchSender_SendAll(t *testing.T) {
	ctx := context.Background()
	sender := new(mockSender)
	cmds := []billing.SendCommand{withCorrelative("1"), withCorrelative("2"), withCorrelative("3")}

	sender.On("SendDocument", ctx, cmds[0]).Return(&billing.SendResult{TransmissionID: "tx-1", Status: entity.TransmissionSent}, nil).Once()
	sender.On("SendDocument", ctx, cmds[1]).Return(nil, errors.New("sin credenciales")).Once()
	sender.On("SendDocument", ctx, cmds[2]).Return(&billing.SendResult{TransmissionID: "tx-3", Status: entity.TransmissionSent}, nil).Once()

	batch, err := billing.NewBatchSender(sender, 2, zerolog.Nop())
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, 2, batch.Capacity())

	results := batch.SendAll(ctx, cmds)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, i, r.Index, "los resultados conservan la posición de entrada")
	}
	assert.Equal(t, "tx-1", results[0].Result.TransmissionID)
	assert.NoError(t, results[0].Err)
	assert.Nil(t, results[1].Result)
	assert.EqualError(t, results[1].Err, "sin credenciales")
	assert.Equal(t, "tx-3", results[2].Result.TransmissionID)
	sender.AssertExpectations(t)
}

func TestBatchSender_CancelledContextSkipsSend(t *testing.T) {
	sender := new(mockSender)
	batch, err := billing.NewBatchSender(sender, 0, zerolog.Nop())
	require.NoError(t, err)
	defer batch.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := batch.SendAll(ctx, []billing.SendCommand{withCorrelative("1")})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	sender.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything)
}
