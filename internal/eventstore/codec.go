package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Event type tags stored alongside each serialized payload. The tag, not the
// Go type, is the durable identity of an event kind.
const (
	TypeAccountCreated = "account.created"
	TypeMoneyDeposited = "money.deposited"
	TypeMoneyWithdrawn = "money.withdrawn"
)

type accountCreatedJSON struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type amountJSON struct {
	Amount decimal.Decimal `json:"amount"`
}

// MarshalPayload serializes a payload to its type tag and JSON body.
func MarshalPayload(p Payload) (string, []byte, error) {
	switch v := p.(type) {
	case AccountCreated:
		data, err := json.Marshal(accountCreatedJSON{InitialBalance: v.InitialBalance})
		return TypeAccountCreated, data, err
	case MoneyDeposited:
		data, err := json.Marshal(amountJSON{Amount: v.Amount})
		return TypeMoneyDeposited, data, err
	case MoneyWithdrawn:
		data, err := json.Marshal(amountJSON{Amount: v.Amount})
		return TypeMoneyWithdrawn, data, err
	default:
		return "", nil, fmt.Errorf("unsupported event payload %T", p)
	}
}

// UnmarshalPayload reverses MarshalPayload. An unknown tag means the stored
// history was written by something this build does not understand; that is a
// data-integrity failure, not a condition to skip over.
func UnmarshalPayload(eventType string, data []byte) (Payload, error) {
	switch eventType {
	case TypeAccountCreated:
		var body accountCreatedJSON
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return AccountCreated{InitialBalance: body.InitialBalance}, nil
	case TypeMoneyDeposited:
		var body amountJSON
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return MoneyDeposited{Amount: body.Amount}, nil
	case TypeMoneyWithdrawn:
		var body amountJSON
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return MoneyWithdrawn{Amount: body.Amount}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
