package checkout

// Step is a checkout state. The flow is linear with no back-transitions;
// closing the dialog is the only way back to shipping.
type Step string

const (
	StepShipping     Step = "shipping"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var validNext = map[Step]map[Step]bool{
	StepShipping:     {StepPayment: true},
	StepPayment:      {StepConfirmation: true},
	StepConfirmation: {},
}

func CanTransition(from, to Step) bool {
	return validNext[from][to]
}
