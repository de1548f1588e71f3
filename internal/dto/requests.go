package dto

type CreateChargeRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	Gateway     string `json:"gateway" binding:"required,oneof=asaas cielo getnet pagarme rede stone"`
	Method      string `json:"method" binding:"required,oneof=pix boleto credit_card debit_card"`
	AmountMinor int64  `json:"amount_minor" binding:"required,gt=0"`
	ProductType string `json:"product_type"`

	Customer CustomerData `json:"customer" binding:"required"`
	Card     *CardData    `json:"card"`

	Installments      int    `json:"installments"`
	PixExpirationSecs int    `json:"pix_expiration_secs"`
	BoletoDueDate     string `json:"boleto_due_date"`

	// WalletID is accepted for wire compatibility with older checkout
	// clients and ignored: split wallets come from the validator only.
	WalletID string `json:"wallet_id"`
}

type CustomerData struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Document string      `json:"document" binding:"required"`
	Address  AddressData `json:"address"`
}

type AddressData struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type RefundRequest struct {
	AmountMinor int64 `json:"amount_minor" binding:"omitempty,gt=0"`
}

type CardData struct {
	Number   string `json:"number" binding:"required"`
	Holder   string `json:"holder" binding:"required"`
	ExpMonth string `json:"exp_month" binding:"required"`
	ExpYear  string `json:"exp_year" binding:"required"`
	CVV      string `json:"cvv" binding:"required"`
}
