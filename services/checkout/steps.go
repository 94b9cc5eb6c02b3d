package checkout

type Step string

const (
	StepInformation Step = "information"
	StepShipping    Step = "shipping"
	StepPayment     Step = "payment"
)

func (s Step) valid() bool {
	return s == StepInformation || s == StepShipping || s == StepPayment
}

type Intent string

const (
	IntentNextFromInformation Intent = "next_from_information"
	IntentNextFromShipping    Intent = "next_from_shipping"
	IntentBackToInformation   Intent = "back_to_information"
	IntentBackToShipping      Intent = "back_to_shipping"
)

func (i Intent) valid() bool {
	switch i {
	case IntentNextFromInformation, IntentNextFromShipping, IntentBackToInformation, IntentBackToShipping:
		return true
	default:
		return false
	}
}

type StepContext struct {
	IsFormComplete bool `json:"isFormComplete"`
	ItemsCount     int  `json:"itemsCount"`
	Submitting     bool `json:"submitting"`
}

// StepTransition has an empty Error when the move is allowed or silently ignored.
type StepTransition struct {
	NextStep Step
	Error    messageKey
}

// ResolveStepTransition decides the next checkout step. Going back always works;
// going forward needs a complete form, a non empty cart and no submission in flight.
func ResolveStepTransition(current Step, intent Intent, ctx StepContext) StepTransition {
	switch intent {
	case IntentBackToInformation:
		return StepTransition{NextStep: StepInformation}
	case IntentBackToShipping:
		return StepTransition{NextStep: StepShipping}
	case IntentNextFromInformation:
		if !ctx.IsFormComplete {
			return StepTransition{NextStep: current, Error: keyCompleteRequiredFields}
		}
		if ctx.ItemsCount == 0 {
			return StepTransition{NextStep: current, Error: keyCartEmpty}
		}
		return StepTransition{NextStep: StepShipping}
	case IntentNextFromShipping:
		if ctx.ItemsCount == 0 {
			return StepTransition{NextStep: current, Error: keyCartEmpty}
		}
		if ctx.Submitting {
			return StepTransition{NextStep: current}
		}
		return StepTransition{NextStep: StepPayment}
	default:
		return StepTransition{NextStep: current}
	}
}
