package checkout

import "strings"

type messageKey string

const (
	keyCompleteRequiredFields messageKey = "completeRequiredFields"
	keyCartEmpty              messageKey = "cartEmptyError"
	keySlotRequired           messageKey = "serviceSlotRequired"
	keyUnknownItems           messageKey = "unknownItems"
	keyInsufficientStock      messageKey = "insufficientStock"
	keyPaymentsUnavailable    messageKey = "paymentsUnavailable"
	keyUnsupportedMode        messageKey = "unsupportedCheckoutMode"
	keyInvalidConfirmation    messageKey = "invalidConfirmation"
	keyInvalidStep            messageKey = "invalidStep"
	keyNoShippingMethod       messageKey = "noShippingMethod"
)

const (
	localeIT      = "it"
	localeEN      = "en"
	defaultLocale = localeIT
)

// Payment confirmation rejections are matched verbatim by clients.
const (
	paymentNotFinalizedMessage = "Payment not finalized"
)

var messages = map[string]map[messageKey]string{
	localeIT: {
		keyCompleteRequiredFields: "Compila tutti i campi obbligatori.",
		keyCartEmpty:              "Carrello vuoto.",
		keySlotRequired:           "Seleziona data e ora preferita per i servizi.",
		keyUnknownItems:           "Alcuni articoli non sono più disponibili.",
		keyInsufficientStock:      "Quantità richiesta non disponibile.",
		keyPaymentsUnavailable:    "Pagamenti non configurati.",
		keyUnsupportedMode:        "Modalità di pagamento non supportata.",
		keyInvalidConfirmation:    "Dati di conferma del pagamento non validi.",
		keyInvalidStep:            "Passaggio non valido.",
		keyNoShippingMethod:       "Nessuna spedizione disponibile per questo indirizzo.",
	},
	localeEN: {
		keyCompleteRequiredFields: "Please complete all required fields.",
		keyCartEmpty:              "Your cart is empty.",
		keySlotRequired:           "Select a preferred date and time for the services.",
		keyUnknownItems:           "Some items are no longer available.",
		keyInsufficientStock:      "Requested quantity not available.",
		keyPaymentsUnavailable:    "Payments are not configured.",
		keyUnsupportedMode:        "Unsupported checkout mode.",
		keyInvalidConfirmation:    "Invalid payment confirmation.",
		keyInvalidStep:            "Invalid checkout step.",
		keyNoShippingMethod:       "No shipping method available for this address.",
	},
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		locale = locale[:idx]
	}
	if _, found := messages[locale]; found {
		return locale
	}
	return defaultLocale
}

func message(locale string, key messageKey) string {
	return messages[normalizeLocale(locale)][key]
}
