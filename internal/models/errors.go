package models

import "errors"

// CustomAPIError distingue les violations de règles métier (panier vide,
// stock insuffisant...) des erreurs internes. Les handlers HTTP les
// traduisent en 400, tout le reste en 500.
type CustomAPIError struct {
	Message string
}

func (e *CustomAPIError) Error() string {
	return e.Message
}

func NewCustomAPIError(message string) *CustomAPIError {
	return &CustomAPIError{Message: message}
}

func IsCustomAPIError(err error) bool {
	var apiErr *CustomAPIError
	return errors.As(err, &apiErr)
}

// PaymentSessionError : la commande est déjà engagée en base mais la
// session de paiement Stripe n'a pas pu être créée. L'état local n'est
// pas annulé ; le chemin d'expiration recrédite le stock plus tard.
type PaymentSessionError struct {
	OrderID string
	Err     error
}

func (e *PaymentSessionError) Error() string {
	return "échec création session de paiement pour la commande " + e.OrderID
}

func (e *PaymentSessionError) Unwrap() error {
	return e.Err
}
