package model

// Plan is one subscription offer shown on the payment keyboard. Code is the
// stable token embedded in callback data ("pay_<code>"), Period is the
// human-readable duration stored on payments.
type Plan struct {
	Code   string `yaml:"code"`
	Period string `yaml:"period"`
	Amount int    `yaml:"amount"`
}

func (p Plan) IsZero() bool { return p.Code == "" }
