package models

// CheckoutInput is what the donor submitted for one recurring checkout attempt.
type CheckoutInput struct {
	Gateway     string          `json:"gateway"`
	Period      string          `json:"period"`
	Price       string          `json:"price"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"`
	Email       string          `json:"user_email"`
	PurchaseKey string          `json:"purchase_key"`
	FormID      int             `json:"give_form_id"`
	FormTitle   string          `json:"give_form_title"`
	PriceID     string          `json:"give_price_id,omitempty"`
	Card        CardInfo        `json:"card_info"`
	Donor       DonorInfo       `json:"user_info"`
	Billing     *BillingAddress `json:"billing_address,omitempty"`
}

type CardInfo struct {
	Number   string `json:"card_number"`
	Name     string `json:"card_name"`
	ExpMonth int    `json:"card_exp_month"`
	ExpYear  string `json:"card_exp_year"`
}

// DonorInfo is the donor profile reference attached to the checkout.
type DonorInfo struct {
	UserID    int64  `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// BillingAddress is only kept when billing details collection is enabled.
type BillingAddress struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}
