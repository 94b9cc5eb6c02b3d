package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStepTransition(t *testing.T) {
	ready := StepContext{IsFormComplete: true, ItemsCount: 2}

	testCases := []struct {
		name    string
		current Step
		intent  Intent
		ctx     StepContext
		next    Step
		err     messageKey
	}{
		{name: "Back to information always allowed", current: StepPayment, intent: IntentBackToInformation, ctx: StepContext{Submitting: true}, next: StepInformation},
		{name: "Back to shipping always allowed", current: StepPayment, intent: IntentBackToShipping, next: StepShipping},
		{name: "Incomplete form", current: StepInformation, intent: IntentNextFromInformation, ctx: StepContext{ItemsCount: 2}, next: StepInformation, err: keyCompleteRequiredFields},
		{name: "Incomplete form wins over empty cart", current: StepInformation, intent: IntentNextFromInformation, next: StepInformation, err: keyCompleteRequiredFields},
		{name: "Empty cart on information", current: StepInformation, intent: IntentNextFromInformation, ctx: StepContext{IsFormComplete: true}, next: StepInformation, err: keyCartEmpty},
		{name: "Information to shipping", current: StepInformation, intent: IntentNextFromInformation, ctx: ready, next: StepShipping},
		{name: "Empty cart on shipping", current: StepShipping, intent: IntentNextFromShipping, ctx: StepContext{Submitting: true}, next: StepShipping, err: keyCartEmpty},
		{name: "Submitting is silently ignored", current: StepShipping, intent: IntentNextFromShipping, ctx: StepContext{ItemsCount: 1, Submitting: true}, next: StepShipping},
		{name: "Shipping to payment", current: StepShipping, intent: IntentNextFromShipping, ctx: ready, next: StepPayment},
		{name: "Unknown intent keeps step", current: StepShipping, intent: Intent("jump"), ctx: ready, next: StepShipping},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, StepTransition{NextStep: tc.next, Error: tc.err}, ResolveStepTransition(tc.current, tc.intent, tc.ctx))
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Carrello vuoto.", message("", keyCartEmpty))
	assert.Equal(t, "Carrello vuoto.", message("fr", keyCartEmpty))
	assert.Equal(t, "Your cart is empty.", message("en-GB", keyCartEmpty))
	assert.Equal(t, "Compila tutti i campi obbligatori.", message("IT", keyCompleteRequiredFields))

	for key := range messages[localeIT] {
		assert.NotEmpty(t, messages[localeEN][key], key)
	}
}
