package checkout_test

import (
	"errors"
	"testing"

	"herbstore/internal/checkout"
	"herbstore/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDetails() (models.CustomerContact, models.ShippingDetails) {
	return models.CustomerContact{
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Email:     gofakeit.Email(),
			Phone:     gofakeit.Phone(),
		}, models.ShippingDetails{
			Address: gofakeit.Street(),
			City:    gofakeit.City(),
			State:   gofakeit.State(),
		}
}

func TestFlow_HappyPath(t *testing.T) {
	f := checkout.New("session-1")
	assert.Equal(t, checkout.StateShipping, f.State)

	customer, shipping := fakeDetails()
	require.NoError(t, f.SubmitShipping(customer, shipping))
	assert.Equal(t, checkout.StatePayment, f.State)

	require.NoError(t, f.BeginPayment("hb_first0001"))
	require.NoError(t, f.Confirm("hb_first0001", "order-1"))
	assert.True(t, f.Done())
	assert.Equal(t, "order-1", f.OrderID)

	// Nothing leaves confirmation.
	assert.True(t, errors.Is(f.BeginPayment("hb_second002"), checkout.ErrInvalidTransition))
	assert.True(t, errors.Is(f.SubmitShipping(customer, shipping), checkout.ErrInvalidTransition))
	assert.True(t, errors.Is(f.Fail("hb_first0001", "late"), checkout.ErrInvalidTransition))
	assert.True(t, errors.Is(f.Retry(), checkout.ErrInvalidTransition))
}

func TestFlow_ShippingGate(t *testing.T) {
	f := checkout.New("session-1")
	customer, shipping := fakeDetails()
	customer.Phone = " "
	shipping.City = ""

	err := f.SubmitShipping(customer, shipping)
	var missing *checkout.MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"city", "phone"}, missing.Fields)
	assert.Equal(t, checkout.StateShipping, f.State)

	assert.True(t, errors.Is(f.BeginPayment("hb_first0001"), checkout.ErrInvalidTransition))
}

func TestFlow_FailAndRetryNeedsNewReference(t *testing.T) {
	f := checkout.New("session-1")
	customer, shipping := fakeDetails()
	require.NoError(t, f.SubmitShipping(customer, shipping))
	require.NoError(t, f.BeginPayment("hb_first0001"))

	assert.True(t, errors.Is(f.Fail("hb_other0001", "declined"), checkout.ErrReferenceMismatch))
	require.NoError(t, f.Fail("hb_first0001", "declined"))
	assert.Equal(t, checkout.StateFailed, f.State)
	assert.Equal(t, "declined", f.FailureReason)

	assert.True(t, errors.Is(f.BeginPayment("hb_second002"), checkout.ErrInvalidTransition))
	require.NoError(t, f.Retry())
	assert.Equal(t, checkout.StatePayment, f.State)
	assert.Empty(t, f.Reference)

	assert.True(t, errors.Is(f.BeginPayment("hb_first0001"), checkout.ErrReferenceReused))
	require.NoError(t, f.BeginPayment("hb_second002"))
	assert.True(t, errors.Is(f.Confirm("hb_first0001", "order-1"), checkout.ErrReferenceMismatch))
	require.NoError(t, f.Confirm("hb_second002", "order-1"))
	assert.True(t, f.Done())
}

func TestFlow_CorrectDetailsBeforePaying(t *testing.T) {
	f := checkout.New("session-1")
	customer, shipping := fakeDetails()
	require.NoError(t, f.SubmitShipping(customer, shipping))

	shipping.City = "Abuja"
	require.NoError(t, f.SubmitShipping(customer, shipping))
	assert.Equal(t, "Abuja", f.Shipping.City)

	require.NoError(t, f.BeginPayment("hb_first0001"))
	assert.True(t, errors.Is(f.SubmitShipping(customer, shipping), checkout.ErrInvalidTransition))
}

func TestFlow_LateSuccessConfirmsFailedReference(t *testing.T) {
	f := checkout.New("session-1")
	customer, shipping := fakeDetails()
	require.NoError(t, f.SubmitShipping(customer, shipping))
	require.NoError(t, f.BeginPayment("hb_first0001"))
	require.NoError(t, f.Fail("hb_first0001", "declined"))

	assert.True(t, errors.Is(f.Confirm("hb_other0001", "order-1"), checkout.ErrReferenceMismatch))
	require.NoError(t, f.Confirm("hb_first0001", "order-1"))
	assert.True(t, f.Done())
	assert.Equal(t, "order-1", f.OrderID)
	assert.Empty(t, f.FailureReason)
}

func TestFlow_RetriedReferenceCannotConfirm(t *testing.T) {
	f := checkout.New("session-1")
	customer, shipping := fakeDetails()
	require.NoError(t, f.SubmitShipping(customer, shipping))
	require.NoError(t, f.BeginPayment("hb_first0001"))
	require.NoError(t, f.Fail("hb_first0001", "declined"))
	require.NoError(t, f.Retry())

	assert.True(t, errors.Is(f.Confirm("hb_first0001", "order-1"), checkout.ErrInvalidTransition))
	assert.Equal(t, checkout.StatePayment, f.State)
}
