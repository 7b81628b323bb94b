package domain

import "fmt"

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

type CardDetails struct {
	CardholderName string `json:"cardName"`
	Number         string `json:"cardNumber"`
	Expiry         string `json:"expiryDate"`
	CVV            string `json:"cvv"`
}

type WalletDetails struct {
	UPIID    string `json:"upiId"`
	Provider string `json:"walletProvider"`
}

// PaymentSelection is a tagged choice; only the struct matching Method is ever set.
type PaymentSelection struct {
	Method PaymentMethod  `json:"method"`
	Card   *CardDetails   `json:"card,omitempty"`
	Wallet *WalletDetails `json:"wallet,omitempty"`
}

// SelectPayment returns a fresh selection for method with every field cleared.
func SelectPayment(method PaymentMethod) (PaymentSelection, error) {
	switch method {
	case PaymentCOD:
		return PaymentSelection{Method: method}, nil
	case PaymentCard:
		return PaymentSelection{Method: method, Card: &CardDetails{}}, nil
	case PaymentUPI:
		return PaymentSelection{Method: method, Wallet: &WalletDetails{}}, nil
	}
	return PaymentSelection{}, fmt.Errorf("%w: %q", ErrInvalidPayment, method)
}

// SetField routes a form field to the selected method. Fields that belong to
// another method are rejected so they can never be submitted.
func (p *PaymentSelection) SetField(field, value string) error {
	switch p.Method {
	case PaymentCard:
		if p.Card == nil {
			p.Card = &CardDetails{}
		}
		switch field {
		case "cardName":
			p.Card.CardholderName = value
		case "cardNumber":
			p.Card.Number = value
		case "expiryDate":
			p.Card.Expiry = value
		case "cvv":
			p.Card.CVV = value
		default:
			return fmt.Errorf("%w: %q is not a card field", ErrUnknownField, field)
		}
	case PaymentUPI:
		if p.Wallet == nil {
			p.Wallet = &WalletDetails{}
		}
		switch field {
		case "upiId":
			p.Wallet.UPIID = value
		case "walletProvider":
			p.Wallet.Provider = value
		default:
			return fmt.Errorf("%w: %q is not a UPI/wallet field", ErrUnknownField, field)
		}
	case PaymentCOD:
		return fmt.Errorf("%w: cash on delivery takes no fields", ErrUnknownField)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPayment, p.Method)
	}
	return nil
}

// Details returns the payload for the selected method only. COD yields an empty map.
func (p PaymentSelection) Details() map[string]string {
	out := map[string]string{}
	switch p.Method {
	case PaymentCard:
		if p.Card != nil {
			out["cardName"] = p.Card.CardholderName
			out["cardNumber"] = p.Card.Number
			out["expiryDate"] = p.Card.Expiry
			out["cvv"] = p.Card.CVV
		}
	case PaymentUPI:
		if p.Wallet != nil {
			out["upiId"] = p.Wallet.UPIID
			out["walletProvider"] = p.Wallet.Provider
		}
	}
	return out
}
